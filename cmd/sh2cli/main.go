package main

import (
	"github.com/robotalks/sh2bridge/pkg/cli/sh"
	"github.com/robotalks/sh2bridge/pkg/env"

	_ "github.com/robotalks/sh2bridge/pkg/cli/cmds/sh2"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
