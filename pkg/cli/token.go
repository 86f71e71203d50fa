package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/zalando/go-keyring"
)

const (
	tokenFileName  = "source_token"
	keyringService = "semscore"
	keyringUser    = "source_token"

	tokenSetFlagName   = "set"
	tokenClearFlagName = "clear"
)

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Manage the bearer token sent when fetching http(s) inputs",
		Description: "With --set the token is read from stdin and saved to the OS keychain " +
			"(or a file in the app home dir when no keychain is available).",
		Action: cmdToken,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  tokenSetFlagName,
				Usage: "Read a token from stdin and save it",
			},
			&cli.BoolFlag{
				Name:  tokenClearFlagName,
				Usage: "Remove the saved token",
			},
		},
	}
}

type tokenStatus struct {
	Stored bool `json:"stored" yaml:"stored"`
}

func cmdToken(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	switch {
	case cmd.Bool(tokenSetFlagName):
		token, err := readToken(cmd.Root().Reader)
		if err != nil {
			return err
		}
		if err := saveSourceToken(cfg.Home, token); err != nil {
			return fmt.Errorf("saving token: %w", err)
		}
		slog.Info("token saved")
	case cmd.Bool(tokenClearFlagName):
		if err := clearSourceToken(cfg.Home); err != nil {
			return fmt.Errorf("clearing token: %w", err)
		}
		slog.Info("token cleared")
	}

	token, err := getSourceToken(cfg.Home)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return encode(cmd, tokenStatus{Stored: token != ""})
}

func readToken(r io.Reader) (string, error) {
	if r == nil {
		r = os.Stdin
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", errors.New("empty token")
	}
	return token, nil
}

func saveSourceToken(home, token string) error {
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return saveSourceTokenFile(home, token)
	}

	// the keychain copy wins, drop any file left from a fallback
	os.Remove(filepath.Join(home, tokenFileName))
	return nil
}

func getSourceToken(home string) (string, error) {
	token, err := keyring.Get(keyringService, keyringUser)
	if err == nil && token != "" {
		return token, nil
	}
	return getSourceTokenFile(home)
}

func clearSourceToken(home string) error {
	if err := keyring.Delete(keyringService, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		slog.Debug("keychain delete failed", "error", err)
	}
	if err := os.Remove(filepath.Join(home, tokenFileName)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func saveSourceTokenFile(home, token string) error {
	return os.WriteFile(filepath.Join(home, tokenFileName), []byte(token), 0600)
}

func getSourceTokenFile(home string) (string, error) {
	p := filepath.Join(home, tokenFileName)
	b, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("reading token file %s: %w", p, err)
	}
	return strings.TrimSpace(string(b)), nil
}
