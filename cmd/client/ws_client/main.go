// Command ws_client attaches to an existing stream and prints every record
// it receives until the stream completes or the process is interrupted.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "Server address")
	streamID := flag.String("stream", "", "Stream ID to attach to")
	apiKey := flag.String("key", "", "API key (sent as X-API-Key)")
	flag.Parse()

	if *streamID == "" {
		log.Fatal("Please provide stream ID using -stream flag")
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	url := fmt.Sprintf("ws://%s/streams/%s/ws", *addr, *streamID)
	log.Printf("Connecting to %s", url)

	header := http.Header{}
	if *apiKey != "" {
		header.Set("X-API-Key", *apiKey)
	}

	c, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	done := make(chan struct{})

	go func() {
		defer close(done)
		count := 0
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("read error: %v", err)
				}
				log.Printf("stream closed after %d records", count)
				return
			}
			count++
			log.Printf("record %d: %s", count, message)
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		log.Println("interrupt")
		err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			log.Println("write close:", err)
			return
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
