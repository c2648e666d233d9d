// Command board renders a live order board for one outlet in the terminal.
// It logs in, loads the active orders, then follows the websocket feed.
// Stdin is a small command prompt for acting on what the board shows:
//
//	next #1001          advance an order one step
//	cancel #1001        cancel an order
//	cats                list menu categories
//	move 3 1            move the category at position 3 to position 1
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/orderdeck/api/internal/board"
	"github.com/orderdeck/api/internal/client"
)

func main() {
	server := flag.String("server", "http://localhost:8082", "API base URL")
	email := flag.String("email", "", "Login email")
	password := flag.String("password", "", "Login password")
	refresh := flag.Duration("refresh", 2*time.Second, "Redraw interval")
	flag.Parse()

	if *email == "" {
		*email = os.Getenv("ORDERDECK_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("ORDERDECK_PASSWORD")
	}
	if *email == "" || *password == "" {
		log.Fatal("email and password are required (flags or ORDERDECK_EMAIL / ORDERDECK_PASSWORD)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, outletID, err := client.Login(ctx, *server, *email, *password)
	if err != nil {
		log.Fatalf("login: %v", err)
	}

	store := board.NewStore()
	bridge := board.NewBridge(store, api, outletID, board.FeedURL(*server, outletID, api.Token()))
	ctrl := board.NewController(store, api, api, outletID)

	go func() {
		if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("ERROR: feed: %v", err)
		}
	}()

	notices := make(chan string, 8)
	go commandLoop(ctx, ctrl, notices)

	var notice string
	ticker := time.NewTicker(*refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case notice = <-notices:
			render(store, notice)
		case <-ticker.C:
			render(store, notice)
		}
	}
}

// commandLoop reads operator commands from stdin and drives the controller.
// Results are reported through notices so the render loop can show them.
func commandLoop(ctx context.Context, ctrl *board.Controller, notices chan<- string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		notices <- runCommand(ctx, ctrl, scanner.Text())
	}
}

func runCommand(ctx context.Context, ctrl *board.Controller, line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}

	switch fields[0] {
	case "next", "cancel":
		if len(fields) != 2 {
			return fmt.Sprintf("usage: %s <order-number>", fields[0])
		}
		o, ok := ctrl.FindByNumber(fields[1])
		if !ok {
			return fmt.Sprintf("no order %s on the board", fields[1])
		}
		var err error
		if fields[0] == "next" {
			err = ctrl.Advance(ctx, o.ID)
		} else {
			err = ctrl.Cancel(ctx, o.ID)
		}
		if err != nil {
			return fmt.Sprintf("%s %s: %v", fields[0], fields[1], err)
		}
		return fmt.Sprintf("%s %s: ok", fields[0], fields[1])

	case "cats":
		cats, err := ctrl.LoadCategories(ctx)
		if err != nil {
			return fmt.Sprintf("cats: %v", err)
		}
		names := make([]string, len(cats))
		for i, c := range cats {
			names[i] = fmt.Sprintf("%d:%s", i, c.Name)
		}
		return "categories: " + strings.Join(names, "  ")

	case "move":
		if len(fields) != 3 {
			return "usage: move <from> <to>"
		}
		from, err1 := strconv.Atoi(fields[1])
		to, err2 := strconv.Atoi(fields[2])
		if err1 != nil || err2 != nil {
			return "usage: move <from> <to>"
		}
		if len(ctrl.Categories()) == 0 {
			if _, err := ctrl.LoadCategories(ctx); err != nil {
				return fmt.Sprintf("move: %v", err)
			}
		}
		if err := ctrl.MoveCategory(ctx, from, to); err != nil {
			return fmt.Sprintf("move: %v", err)
		}
		return fmt.Sprintf("move %d %d: ok", from, to)

	default:
		return "commands: next <order>, cancel <order>, cats, move <from> <to>"
	}
}

func render(store *board.Store, notice string) {
	// Clear screen, home cursor.
	fmt.Print("\033[2J\033[H")
	fmt.Printf("OrderDeck — %s\n\n", time.Now().Format("15:04:05"))

	for _, col := range store.Board() {
		title := strings.ReplaceAll(string(col.Status), "_", " ")
		fmt.Printf("== %s (%d) ==\n", strings.ToUpper(title), len(col.Orders))
		for _, o := range col.Orders {
			age := time.Since(o.CreatedAt).Round(time.Minute)
			fmt.Printf("  %-7s %-20s %8s  %s\n", o.OrderNumber, o.CustomerName, o.Total, age)
		}
		fmt.Println()
	}

	if notice != "" {
		fmt.Printf("-- %s\n", notice)
	}
	fmt.Print("> ")
}
