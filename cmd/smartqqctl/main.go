package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/ArkBriar/smartqq/internal/adapter"
	"github.com/ArkBriar/smartqq/internal/api"
	"github.com/ArkBriar/smartqq/internal/session"
	"github.com/ArkBriar/smartqq/internal/store"
	"github.com/ArkBriar/smartqq/internal/tui/client"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Usage = printUsage
	flag.Parse()

	sessionName, err := session.Resolve(*sessionFlag)
	if err != nil {
		fatal(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	socketPath := session.SocketPath(sessionName)
	c, err := client.New(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for session %q: %v\n", sessionName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	// login and watch run until the stream ends or the user interrupts.
	base, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(base, 10*time.Second)
	defer cancel()

	out := output{json: *jsonFlag}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "status":
		cmdStatus(ctx, c, out)
	case "login":
		cmdLogin(base, c, out)
	case "contacts":
		cmdContacts(ctx, c, out, rest)
	case "info":
		cmdInfo(ctx, c, rest)
	case "conversations":
		cmdConversations(ctx, c, out, rest)
	case "messages":
		cmdMessages(ctx, c, out, rest)
	case "search":
		cmdSearch(ctx, c, out, rest)
	case "send":
		cmdSend(ctx, c, out, rest)
	case "refresh":
		cmdRefresh(ctx, c, out, rest)
	case "watch":
		cmdWatch(base, c, rest)
	case "stop":
		cmdStop(ctx, c, out)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: smartqqctl [--session <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                          Show session status")
	fmt.Fprintln(os.Stderr, "  login                           Log in by QR code and follow progress")
	fmt.Fprintln(os.Stderr, "  contacts [--cached] <kind>      List friend, group, discuss, category, recent or online")
	fmt.Fprintln(os.Stderr, "  info <kind> [id]                Show self, friend, group, discuss or qq info")
	fmt.Fprintln(os.Stderr, "  conversations [--limit n]       List conversations, most recent first")
	fmt.Fprintln(os.Stderr, "  messages [--limit n] <kind> <peer>")
	fmt.Fprintln(os.Stderr, "                                  Show the latest messages of a conversation")
	fmt.Fprintln(os.Stderr, "  search <query>                  Search stored messages")
	fmt.Fprintln(os.Stderr, "  send <kind> <peer> <text>       Queue a text message")
	fmt.Fprintln(os.Stderr, "  refresh [kind]                  Refresh cached contacts")
	fmt.Fprintln(os.Stderr, "  watch [namespace]               Stream daemon events")
	fmt.Fprintln(os.Stderr, "  stop                            Stop polling for messages")
}

type output struct {
	json bool
}

// emit prints v as JSON when requested and reports whether it did.
func (o output) emit(v any) bool {
	if !o.json {
		return false
	}
	outputJSON(v)
	return true
}

func cmdStatus(ctx context.Context, c *client.Client, out output) {
	resp, err := c.GetStatus(ctx)
	if err != nil {
		fatal(err)
	}
	if out.emit(resp) {
		return
	}
	fmt.Printf("Session:  %s\n", resp.Session)
	fmt.Printf("Status:   %s\n", resp.Status)
	if resp.LoggedIn {
		fmt.Printf("Account:  %d (%s)\n", resp.Account, resp.Nick)
	}
	fmt.Printf("Polling:  %v\n", resp.Polling)
	fmt.Printf("Messages: %d\n", resp.MessageCount)
	fmt.Printf("Contacts: %d\n", resp.ContactCount)
	fmt.Printf("Uptime:   %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
	if resp.DroppedEvents > 0 {
		fmt.Printf("Dropped:  %d events\n", resp.DroppedEvents)
	}
}

func cmdLogin(ctx context.Context, c *client.Client, out output) {
	stream, err := c.Auth(ctx)
	if err != nil {
		fatal(err)
	}
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			fatal(err)
		}
		if out.emit(ev) {
			continue
		}
		switch ev.Type {
		case adapter.AuthEventQRCode:
			fmt.Printf("Scan the QR code in %s with the mobile QQ app.\n", ev.QRPath)
		case adapter.AuthEventStage:
			fmt.Printf("... %s\n", ev.Stage)
		case adapter.AuthEventAuthenticated:
			fmt.Println("Logged in.")
		case adapter.AuthEventAuthFailed:
			fmt.Fprintf(os.Stderr, "login failed: %s\n", ev.Message)
			os.Exit(1)
		}
	}
}

func cmdContacts(ctx context.Context, c *client.Client, out output, args []string) {
	fs := flag.NewFlagSet("contacts", flag.ExitOnError)
	cached := fs.Bool("cached", false, "read friend, group or discuss lists from the local cache")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		usage("contacts [--cached] <kind>")
	}

	resp, err := c.ListContacts(ctx, &api.ListContactsRequest{Kind: fs.Arg(0), Cached: *cached})
	if err != nil {
		fatal(err)
	}
	if !*cached || out.json {
		outputJSON(resp.Items)
		return
	}

	var contacts []store.Contact
	if err := json.Unmarshal(resp.Items, &contacts); err != nil {
		fatal(err)
	}
	if len(contacts) == 0 {
		fmt.Println("No contacts cached.")
		return
	}
	for _, ct := range contacts {
		fmt.Printf("%-12d %s\n", ct.ID, ct.DisplayName())
	}
}

func cmdInfo(ctx context.Context, c *client.Client, args []string) {
	if len(args) < 1 || len(args) > 2 {
		usage("info <kind> [id]")
	}
	req := &api.GetInfoRequest{Kind: args[0]}
	if len(args) == 2 {
		req.ID = parseID(args[1])
	}
	resp, err := c.GetInfo(ctx, req)
	if err != nil {
		fatal(err)
	}
	outputJSON(resp.Info)
}

func cmdConversations(ctx context.Context, c *client.Client, out output, args []string) {
	fs := flag.NewFlagSet("conversations", flag.ExitOnError)
	limit := fs.Int("limit", 50, "maximum number of conversations")
	_ = fs.Parse(args)

	resp, err := c.ListConversations(ctx, &api.ListConversationsRequest{Limit: *limit})
	if err != nil {
		fatal(err)
	}
	if out.emit(resp) {
		return
	}
	if len(resp.Conversations) == 0 {
		fmt.Println("No conversations yet.")
		return
	}
	for _, conv := range resp.Conversations {
		fmt.Printf("%-8s %-12d %-24s %4d  %s\n",
			conv.Kind, conv.Peer, conv.Name, conv.UnreadCount, oneLine(conv.LastMessagePreview))
	}
}

func cmdMessages(ctx context.Context, c *client.Client, out output, args []string) {
	fs := flag.NewFlagSet("messages", flag.ExitOnError)
	limit := fs.Int("limit", 20, "maximum number of messages")
	_ = fs.Parse(args)
	if fs.NArg() != 2 {
		usage("messages [--limit n] <kind> <peer>")
	}

	resp, err := c.ListMessages(ctx, &api.ListMessagesRequest{
		Kind:  fs.Arg(0),
		Peer:  parseID(fs.Arg(1)),
		Limit: *limit,
	})
	if err != nil {
		fatal(err)
	}
	if out.emit(resp) {
		return
	}
	// Newest first on the wire; print in reading order.
	for i := len(resp.Messages) - 1; i >= 0; i-- {
		printMessage(resp.Messages[i])
	}
}

func cmdSearch(ctx context.Context, c *client.Client, out output, args []string) {
	if len(args) == 0 {
		usage("search <query>")
	}
	resp, err := c.SearchMessages(ctx, &api.SearchMessagesRequest{Query: strings.Join(args, " ")})
	if err != nil {
		fatal(err)
	}
	if out.emit(resp) {
		return
	}
	if len(resp.Results) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, r := range resp.Results {
		m := r.Message
		fmt.Printf("%s %s:%d  %s\n", formatTime(m.Timestamp), m.Kind, m.Peer, oneLine(r.Snippet))
	}
}

func cmdSend(ctx context.Context, c *client.Client, out output, args []string) {
	if len(args) < 3 {
		usage("send <kind> <peer> <text>")
	}
	resp, err := c.SendText(ctx, &api.SendTextRequest{
		Kind: args[0],
		Peer: parseID(args[1]),
		Text: strings.Join(args[2:], " "),
	})
	if err != nil {
		fatal(err)
	}
	if out.emit(resp) {
		return
	}
	fmt.Printf("Queued %s\n", resp.ClientMsgID)
}

func cmdRefresh(ctx context.Context, c *client.Client, out output, args []string) {
	req := &api.RefreshContactsRequest{}
	if len(args) > 0 {
		req.Kind = args[0]
	}
	resp, err := c.RefreshContacts(ctx, req)
	if err != nil {
		fatal(err)
	}
	if out.emit(resp) {
		return
	}
	fmt.Printf("Refreshed: %s\n", strings.Join(resp.Refreshed, ", "))
}

func cmdWatch(ctx context.Context, c *client.Client, args []string) {
	namespace := ""
	if len(args) > 0 {
		namespace = args[0]
	}
	stream, err := c.Events(ctx, namespace)
	if err != nil {
		fatal(err)
	}
	enc := json.NewEncoder(os.Stdout)
	for {
		env, err := stream.Recv()
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return
		}
		if err != nil {
			fatal(err)
		}
		if err := enc.Encode(env); err != nil {
			fatal(err)
		}
	}
}

func cmdStop(ctx context.Context, c *client.Client, out output) {
	resp, err := c.StopPolling(ctx)
	if err != nil {
		fatal(err)
	}
	if out.emit(resp) {
		return
	}
	if resp.Stopped {
		fmt.Println("Polling stopped.")
	} else {
		fmt.Println("Polling was not running.")
	}
}

func printMessage(m store.Message) {
	who := m.SenderName
	switch {
	case m.FromMe:
		who = "me"
	case who == "":
		who = strconv.FormatInt(m.Sender, 10)
	}
	mark := ""
	if m.Status == store.StatusFailed {
		mark = " (failed)"
	}
	fmt.Printf("%s %s: %s%s\n", formatTime(m.Timestamp), who, m.Body, mark)
}

func formatTime(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fatal(fmt.Errorf("invalid id %q", s))
	}
	return id
}

func usage(line string) {
	fmt.Fprintf(os.Stderr, "usage: smartqqctl %s\n", line)
	os.Exit(1)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
