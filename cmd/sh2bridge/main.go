package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/sh2bridge/pkg/env"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	if err := env.NewConfig().MustNewEnv().Run(); err != nil {
		glog.Exit(err)
	}
}
