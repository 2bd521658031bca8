package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/DphenomenalALU/tresor-backend/internal/client"
	"github.com/DphenomenalALU/tresor-backend/internal/domain/chat"
	"github.com/DphenomenalALU/tresor-backend/internal/domain/user"
	"github.com/DphenomenalALU/tresor-backend/internal/utils/httpclients"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat prompt",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		ctx := context.Background()
		users := user.NewService(store)
		current, err := users.Current(ctx)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("not signed in, run 'tresor-cli login' first")
		}

		session := chat.NewSession(chat.NewManager(store), store, current.ID, flagModel)
		if err := session.Start(ctx); err != nil {
			return err
		}

		relay := client.NewClient(session, httpclients.NewClient("cli", 2*time.Minute), flagServerURL)
		relay.OnFragment(func(fragment string) {
			fmt.Print(fragment)
		})

		fmt.Printf("Signed in as %s. Type a message, or /help for commands.\n", current.Name)
		printThread(session)

		return repl(ctx, session, relay, users)
	},
}

func repl(ctx context.Context, session *chat.Session, relay *client.Client, users *user.Service) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			if _, err := relay.SendMessage(ctx, line); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Println()
			continue
		}

		fields := strings.Fields(line)
		command, arg := fields[0], strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

		switch command {
		case "/help":
			printHelp()
		case "/threads":
			printThreads(session)
		case "/new":
			if err := session.NewThread(ctx); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			printThread(session)
		case "/select":
			withID(arg, func(id int64) {
				if err := session.Select(ctx, id); err != nil {
					fmt.Printf("error: %v\n", err)
					return
				}
				printThread(session)
			})
		case "/delete":
			withID(arg, func(id int64) {
				if err := session.Delete(ctx, id); err != nil {
					fmt.Printf("error: %v\n", err)
					return
				}
				printThread(session)
			})
		case "/fav":
			withID(arg, func(id int64) {
				if err := session.ToggleFavorite(ctx, id); err != nil {
					fmt.Printf("error: %v\n", err)
				}
			})
		case "/filter":
			if arg == "" {
				arg = chat.FilterAll
			}
			session.Filter = arg
			printMessages(session)
		case "/search":
			session.SearchTerm = arg
			printMessages(session)
		case "/model":
			if arg == "" {
				fmt.Printf("model: %s\n", session.Model)
				continue
			}
			if err := session.SetModel(ctx, arg); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		case "/logout":
			if err := users.Logout(ctx); err != nil {
				return err
			}
			fmt.Println("Signed out.")
			return nil
		case "/quit", "/exit":
			return nil
		default:
			fmt.Printf("unknown command %s, try /help\n", command)
		}
	}
}

func printHelp() {
	fmt.Print(`Commands:
  /threads           list threads
  /new               start a new thread
  /select <id>       switch to a thread
  /delete <id>       delete a thread
  /fav <message-id>  toggle a message favorite
  /filter <tag>      filter messages (all, favorites, AI, User, questions, code)
  /search <term>     search messages
  /model [name]      show or change the completion model
  /logout            sign out
  /quit              leave
`)
}

func printThreads(session *chat.Session) {
	for _, thread := range session.Threads {
		marker := " "
		if thread.IsActive {
			marker = "*"
		}
		fmt.Printf("%s %d  %-28s %s\n", marker, thread.ID, thread.Title, thread.Preview)
	}
}

func printThread(session *chat.Session) {
	for _, thread := range session.Threads {
		if thread.ID == session.ActiveThreadID {
			fmt.Printf("-- %s --\n", thread.Title)
			break
		}
	}
	printMessages(session)
}

func printMessages(session *chat.Session) {
	for _, result := range session.FilteredMessages() {
		speaker := "you"
		if result.Message.IsAssistant {
			speaker = "ai"
		}
		star := ""
		if result.Message.Favorite {
			star = " *"
		}
		fmt.Printf("[%d] %s%s: %s\n", result.Message.ID, speaker, star, result.Message.Content)
	}
}

func withID(arg string, fn func(int64)) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fmt.Println("expected a numeric id")
		return
	}
	fn(id)
}
