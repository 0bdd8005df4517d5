package command

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/yndnr/imrelay/pkg/passwd"
)

// HashCommand returns the hash command.
func HashCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash",
		Usage:     "Print a digest for the relay.password setting",
		ArgsUsage: "[PASSWORD]",
		Description: "Reads the password from the argument, from a terminal prompt, or from\n" +
			"the first line of standard input, and prints an Argon2id digest.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "legacy",
				Usage: "Print a hex SHA-1 digest for configs shared with older relays",
			},
		},
		Action: hashAction,
	}
}

func hashAction(c *cli.Context) error {
	password := c.Args().First()
	if password == "" {
		var err error
		if password, err = readPassword(c, "Password: ", true); err != nil {
			return err
		}
	}
	if password == "" {
		return errors.New("password must not be empty")
	}

	var digest string
	if c.Bool("legacy") {
		digest = passwd.HashLegacy(password)
	} else {
		var err error
		if digest, err = passwd.Hash(password); err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
	}

	fmt.Fprintln(stdout(c), digest)
	return nil
}

// readPassword prompts on the terminal with echo disabled, or reads one
// line from the app's input when it is not a terminal.
func readPassword(c *cli.Context, prompt string, confirm bool) (string, error) {
	if !stdinIsTerminal() {
		line, err := bufio.NewReader(c.App.Reader).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fd := int(os.Stdin.Fd())
	fmt.Fprint(stderr(c), prompt)
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(stderr(c))
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if !confirm {
		return string(first), nil
	}

	fmt.Fprint(stderr(c), "Repeat: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(stderr(c))
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
