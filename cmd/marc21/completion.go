package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/deutsche-nationalbibliothek/marc21/internal/errs"
)

// completionCommand implements "build-completion <shell>", emitting a
// shell completion script to stdout.
func completionCommand() *cli.Command {
	return &cli.Command{
		Name:      "build-completion",
		Usage:     "print a shell completion script",
		ArgsUsage: "<bash|zsh|fish>",
		Action: func(c *cli.Context) error {
			shell := c.Args().First()
			script, ok := completionScripts[shell]
			if !ok {
				return errs.Wrapf(errs.UsageError, "build-completion", "unsupported shell %q (want bash, zsh, or fish)", shell)
			}
			fmt.Print(script)
			return nil
		},
	}
}

var completionScripts = map[string]string{
	"bash": `_marc21_complete() {
	local cur prev
	COMPREPLY=()
	cur="${COMP_WORDS[COMP_CWORD]}"
	opts="concat cat count cnt filter hash invalid print sample split build-completion build-man"
	COMPREPLY=($(compgen -W "${opts}" -- "${cur}"))
	return 0
}
complete -F _marc21_complete marc21
`,
	"zsh": `#compdef marc21
_marc21() {
	local -a subcommands
	subcommands=(
		'concat:pass through matching records'
		'cat:alias for concat'
		'count:print the number of matching records'
		'cnt:alias for count'
		'filter:emit matching records raw bytes'
		'hash:print id and sha256 per record'
		'invalid:emit raw bytes of invalid records'
		'print:render records in human-readable form'
		'sample:reservoir-sample matching records'
		'split:split matching records into chunks'
		'build-completion:print a shell completion script'
		'build-man:print a man page'
	)
	_describe 'command' subcommands
}
_marc21
`,
	"fish": `complete -c marc21 -f -a "concat cat count cnt filter hash invalid print sample split build-completion build-man"
`,
}
