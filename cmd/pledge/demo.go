package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/pledge/internal/accounts"
	"github.com/aretw0/pledge/internal/outcomes"
	"github.com/aretw0/pledge/pkg/adapters/memory"
	"github.com/aretw0/pledge/pkg/clock"
	"github.com/aretw0/pledge/pkg/commands"
	"github.com/aretw0/pledge/pkg/domain"
	"github.com/aretw0/pledge/pkg/engine"
	"github.com/aretw0/pledge/pkg/ports"
)

// consoleChat prints outbound bot messages to stdout.
type consoleChat struct{}

func (consoleChat) SendMessage(_ context.Context, recipientID, text string) error {
	fmt.Printf("  [bot -> %s] %s\n", recipientID, text)
	return nil
}

func (consoleChat) GetUserInfo(_ context.Context, id string) (ports.UserInfo, error) {
	return ports.UserInfo{ID: id, Name: title(id)}, nil
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run an interactive in-memory demo session",
	Long: `Starts a local chat loop against an in-memory engine. Type commands
as any user and watch the bot replies.

  \as <user>        switch the speaking user (default: alice)
  \grant <amount>   credit the speaking user's balance
  \quit             exit

Everything else is sent as a chat message, e.g. "/marry @bob 100".`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		accts := accounts.NewMemoryStore()
		eng := engine.New(memory.NewStore(), clock.NewSystem(),
			engine.WithApplier(domain.KindMarriage, &outcomes.Marriage{Accounts: accts}),
			engine.WithApplier(domain.KindConfirmAction, &outcomes.Divorce{Accounts: accts}),
		)
		router := commands.NewRouter(eng, consoleChat{}, accts,
			commands.WithApprover("mod"),
		)

		fmt.Println("--- Pledge demo (in-memory) ---")
		fmt.Println(`Speaking as "alice". Try "/marry @bob 100", "\as bob", "/accept".`)

		user := "alice"
		reader := bufio.NewReader(os.Stdin)
		for {
			fmt.Printf("%s> ", user)
			line, err := reader.ReadString('\n')
			if err != nil {
				fmt.Println()
				return
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
				continue
			case line == `\quit` || line == "exit":
				fmt.Println("Bye!")
				return
			case strings.HasPrefix(line, `\as `):
				user = strings.TrimSpace(strings.TrimPrefix(line, `\as `))
			case strings.HasPrefix(line, `\grant `):
				raw := strings.TrimSpace(strings.TrimPrefix(line, `\grant `))
				amount, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || amount <= 0 {
					fmt.Println("  usage: \\grant <positive amount>")
					continue
				}
				if err := accts.Credit(ctx, user, amount); err != nil {
					fmt.Printf("  credit failed: %v\n", err)
					continue
				}
				acct, _ := accts.Get(ctx, user)
				fmt.Printf("  balance of %s is now %d\n", user, acct.Balance)
			default:
				if err := router.Handle(ctx, commands.Message{SenderID: user, Text: line}); err != nil {
					fmt.Printf("  error: %v\n", err)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
}
