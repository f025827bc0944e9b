package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// manCommand implements "build-man", printing a man page for the
// whole app via urfave/cli's built-in troff generator.
func manCommand() *cli.Command {
	return &cli.Command{
		Name:  "build-man",
		Usage: "print a man page for marc21",
		Action: func(c *cli.Context) error {
			text, err := c.App.ToMan()
			if err != nil {
				return err
			}
			fmt.Print(text)
			return nil
		},
	}
}
