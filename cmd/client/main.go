package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"chatrelay/internal/domain"
)

var (
	addr     = flag.String("addr", "localhost:8080", "http service address")
	room     = flag.String("room", "general", "room to join")
	username = flag.String("username", "", "username to chat as")
)

func main() {
	flag.Parse()

	name := *username
	if name == "" {
		name = promptUsername()
	}

	conn := connectWebSocket()
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go readEvents(conn, done)

	joinMsg := domain.Event{Type: domain.EventTypeJoin, Room: *room, Username: name}
	if err := conn.WriteJSON(joinMsg); err != nil {
		log.Fatalf("Failed to join room: %v", err)
	}

	fmt.Println("Write Messages (Press Enter to Send):")
	writeMessages(conn, name, interrupt, done)
}

func promptUsername() string {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("Enter your username: ")
	scanner.Scan()
	return scanner.Text()
}

func connectWebSocket() *websocket.Conn {
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect to WebSocket server: %v", err)
	}
	log.Println("Connected to WebSocket server.")
	return conn
}

func readEvents(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		var event domain.Event
		if err := conn.ReadJSON(&event); err != nil {
			log.Printf("Error reading event: %v", err)
			return
		}

		switch event.Type {
		case domain.EventTypeHistory:
			for _, msg := range event.History {
				fmt.Printf("[%s] %s: %s\n", msg.Timestamp.Local().Format("15:04:05"), msg.Username, msg.Message)
			}
		case domain.EventTypeChat:
			fmt.Printf("\n[%s] %s: %s\n", event.Timestamp.Local().Format("15:04:05"), event.Username, event.Message)
		case domain.EventTypeSystem:
			fmt.Printf("\n-- %s\n", event.Message)
		case domain.EventTypeError:
			fmt.Printf("\n!! %s\n", event.Message)
		}
	}
}

func writeMessages(conn *websocket.Conn, name string, interrupt chan os.Signal, done chan struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection...")
			err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Printf("Error during close: %v", err)
			}
			return
		default:
			if scanner.Scan() {
				content := scanner.Text()
				if content == "" {
					continue
				}

				event := domain.Event{
					Type:     domain.EventTypeChat,
					Room:     *room,
					Username: name,
					Message:  content,
				}
				switch content {
				case "#users":
					event = domain.Event{Type: domain.EventTypeUsers}
				case "#rooms":
					event = domain.Event{Type: domain.EventTypeRooms}
				}

				if err := conn.WriteJSON(event); err != nil {
					log.Printf("Error sending message: %v", err)
					return
				}
			}
		}
	}
}
