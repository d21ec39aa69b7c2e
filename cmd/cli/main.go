package main

import (
	"github.com/mchmarny/creditrisk/pkg/cli"
)

func main() {
	cli.Execute()
}
