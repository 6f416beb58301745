// decree-client is a probe client for exercising a running server: it
// creates or joins a room, optionally readies up, and pretty-prints every
// event the server sends.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

var cli struct {
	Server string `help:"WebSocket URL of the server." default:"ws://localhost:8080/ws"`
	Name   string `help:"Player display name." default:"Probe"`
	Join   string `help:"Room id to join; omit to create a room." optional:""`
	Ready  bool   `help:"Send ready immediately after joining."`
}

var (
	typeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	bodyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	stampStyle = lipgloss.NewStyle().Faint(true)
)

type envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func send(ws *websocket.Conn, msgType string, data interface{}) error {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		raw = b
	}
	return ws.WriteJSON(envelope{Type: msgType, Data: raw, Timestamp: time.Now()})
}

func main() {
	kong.Parse(&cli,
		kong.Name("decree-client"),
		kong.Description("Probe client for a TheDecree server."),
	)
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, cli.Server, nil)
	if err != nil {
		logger.Fatal("dial failed", "server", cli.Server, "error", err)
	}
	defer ws.Close()
	logger.Info("connected", "server", cli.Server)

	if cli.Join != "" {
		err = send(ws, "join_room", map[string]string{"roomId": cli.Join, "playerName": cli.Name})
	} else {
		err = send(ws, "create_room", map[string]interface{}{
			"playerName": cli.Name,
			"gameMode":   "the_decree",
			"maxPlayers": 4,
		})
	}
	if err != nil {
		logger.Fatal("handshake failed", "error", err)
	}
	if cli.Ready {
		if err := send(ws, "ready", nil); err != nil {
			logger.Fatal("ready failed", "error", err)
		}
	}

	// Application-level heartbeat alongside the protocol pings.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = send(ws, "ping", nil)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		ws.Close()
	}()

	for {
		var msg envelope
		if err := ws.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Fatal("read failed", "error", err)
		}
		style := typeStyle
		if msg.Type == "error" {
			style = errStyle
		}
		fmt.Printf("%s %s %s\n",
			stampStyle.Render(msg.Timestamp.Format("15:04:05.000")),
			style.Render(msg.Type),
			bodyStyle.Render(string(msg.Data)))
	}
}
