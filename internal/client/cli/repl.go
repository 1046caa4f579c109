package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Me(ctx context.Context) error
	Refresh(ctx context.Context) error
	Products(ctx context.Context, args []string) error
	Category(ctx context.Context, args []string) error
	Categories(ctx context.Context) error
	Product(ctx context.Context, args []string) error
	Home(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: login, home, products [page], category <slug|all>, categories, product <id>, exit"
	helpLoggedIn  = "Available commands: whoami, me, refresh, logout, home, products [page], category <slug|all>, categories, product <id>, exit"
)

// runREPL starts a simple read–eval–print loop for the storefront CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF, on context cancellation, or when the user
// types "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers report
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("storefront%s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "me":
			_ = a.Me(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "home":
			_ = a.Home(ctx)

		case "products":
			_ = a.Products(ctx, args)

		case "category":
			if len(args) == 0 {
				printlnFn("Usage: category <slug|all>")
				continue
			}
			_ = a.Category(ctx, args)

		case "categories":
			_ = a.Categories(ctx)

		case "product":
			if len(args) == 0 {
				printlnFn("Usage: product <id>")
				continue
			}
			_ = a.Product(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
