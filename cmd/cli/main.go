package main

import (
	"github.com/mchmarny/semscore/pkg/cli"
)

func main() {
	cli.Execute()
}
