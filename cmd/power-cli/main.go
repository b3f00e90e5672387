// power-cli is a small interactive client for poking at a running
// server: it connects, joins a game, and prints every event the relay
// broadcasts. Commands are read line by line from stdin.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/politicalpower/power-server-go/internal/card"
	"github.com/politicalpower/power-server-go/pkg/client"
)

var (
	serverURL = flag.String("url", "ws://localhost:8080/ws", "relay websocket URL")
	username  = flag.String("user", "observer", "username to join with")
)

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	conn := client.New(client.Options{
		URL:    *serverURL,
		Logger: logger,
	})
	if err := conn.Connect(context.Background()); err != nil {
		logger.Fatal("connect failed", zap.Error(err))
	}
	defer conn.Close()

	go func() {
		for state := range conn.States() {
			fmt.Printf("** connection: %s\n", state)
		}
	}()
	go func() {
		for msg := range conn.Events() {
			fmt.Printf("<< %s %s\n", msg.Event, string(msg.Data))
		}
	}()

	fmt.Println("commands: create <name> [deckFile] | join <gameId> <userId> | start <gameId> | action <TYPE> [cardId] | resume <token> | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "exit":
			return
		case "create":
			if len(fields) < 2 {
				fmt.Println("usage: create <name> [deckFile]")
				continue
			}
			payload := map[string]any{"name": fields[1]}
			if len(fields) > 2 {
				deck, err := card.LoadDeckFile(fields[2])
				if err != nil {
					fmt.Printf("!! %v\n", err)
					continue
				}
				payload["deckCardIds"] = deck.CardIDs()
			}
			emit(conn, "create-game", payload)
		case "join":
			if len(fields) < 3 {
				fmt.Println("usage: join <gameId> <userId>")
				continue
			}
			emit(conn, "join-game", map[string]any{
				"gameId": fields[1],
				"player": map[string]string{"userId": fields[2], "username": *username},
			})
		case "start":
			if len(fields) < 2 {
				fmt.Println("usage: start <gameId>")
				continue
			}
			emit(conn, "start-game", map[string]any{"gameId": fields[1]})
		case "action":
			if len(fields) < 2 {
				fmt.Println("usage: action <TYPE> [cardId]")
				continue
			}
			payload := map[string]any{"type": fields[1]}
			if len(fields) > 2 {
				payload["cardId"] = fields[2]
			}
			emit(conn, "game-action", payload)
		case "resume":
			if len(fields) < 2 {
				fmt.Println("usage: resume <token>")
				continue
			}
			emit(conn, "resume", map[string]any{"token": fields[1]})
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

func emit(conn *client.Conn, event string, data any) {
	if err := conn.Emit(event, data); err != nil {
		fmt.Printf("!! emit %s: %v\n", event, err)
		return
	}
	payload, _ := json.Marshal(data)
	fmt.Printf(">> %s %s\n", event, payload)
}
