package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Protocol-Lattice/research-agent/src/session"
)

const (
	botName  = "ResearchBot"
	greeting = "Hi! I can help you research topics. Type /bye to exit."
	goodbye  = "Goodbye! Happy researching."
)

// CLI is the interactive terminal front end. One CLI is one session.
type CLI struct {
	shell     *Shell
	in        *bufio.Scanner
	out       io.Writer
	sessionID string
}

func NewCLI(shell *Shell, in io.Reader, out io.Writer) *CLI {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &CLI{shell: shell, in: scanner, out: out, sessionID: session.NewID()}
}

func (c *CLI) SessionID() string { return c.sessionID }

// Run loops until an exit word, end of input, context cancellation or a
// runtime failure. Only the latter two are returned as errors. Input is read
// on a separate goroutine so cancellation also ends a blocked prompt; Run
// must not be called twice on the same CLI.
func (c *CLI) Run(ctx context.Context) error {
	c.say(greeting + "\n")

	lines := make(chan string)
	stop := make(chan struct{})
	defer close(stop)
	var scanErr error
	go func() {
		defer close(lines)
		for c.in.Scan() {
			select {
			case lines <- c.in.Text():
			case <-stop:
				return
			}
		}
		scanErr = c.in.Err()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(c.out, "You: ")

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return ctx.Err()
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(c.out)
			c.say(goodbye)
			return scanErr
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		turn, err := c.shell.Turn(ctx, c.sessionID, line)
		if err != nil {
			return err
		}
		if turn.Exit {
			c.say(goodbye)
			return nil
		}
		c.show(turn)
		fmt.Fprintln(c.out)
	}
}

// RunOnce answers a single query without the greeting or the loop.
func (c *CLI) RunOnce(ctx context.Context, query string) error {
	turn, err := c.shell.Turn(ctx, c.sessionID, query)
	if err != nil {
		return err
	}
	if turn.Exit {
		c.say(goodbye)
		return nil
	}
	c.show(turn)
	return nil
}

func (c *CLI) show(turn *TurnResult) {
	if turn.ParseErr != nil {
		c.say("Error parsing response: " + turn.ParseErr.Reason)
		fmt.Fprintf(c.out, "Raw Response: %s\n", turn.Raw)
		return
	}
	c.say(turn.Rendered)
	if turn.SaveErr != nil {
		fmt.Fprintf(c.out, "(could not save this answer: %v)\n", turn.SaveErr)
	}
}

func (c *CLI) say(text string) {
	fmt.Fprintf(c.out, "%s: %s\n", botName, text)
}
