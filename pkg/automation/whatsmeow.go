package automation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waTypes "go.mau.fi/whatsmeow/types"
	waEvents "go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"
)

const backendWhatsmeow = "whatsmeow"

var (
	errClientClosed = errors.New("client is closed")
	nonDigits       = regexp.MustCompile(`[^\d+]`)
)

// WhatsmeowClient drives a multi-device WhatsApp connection. Device keys live
// in a sqlite store inside the session's credential directory.
type WhatsmeowClient struct {
	opts LaunchOptions
	log  waLog.Logger

	mu        sync.Mutex
	container *sqlstore.Container
	client    *whatsmeow.Client
	cancel    context.CancelFunc
	closed    bool
}

// NewWhatsmeow is a Factory for the whatsmeow backend.
func NewWhatsmeow(opts LaunchOptions) (Client, error) {
	if strings.TrimSpace(opts.DataDir) == "" {
		return nil, fmt.Errorf("whatsmeow: credential directory is required")
	}
	return &WhatsmeowClient{
		opts: opts,
		log:  waLog.Zerolog(opts.Logger.With().Str("backend", backendWhatsmeow).Logger()),
	}, nil
}

func (c *WhatsmeowClient) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClientClosed
	}
	if c.client != nil {
		return nil
	}

	if err := os.MkdirAll(c.opts.DataDir, 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		filepath.Join(c.opts.DataDir, "store.db"))
	container, err := sqlstore.New(ctx, "sqlite", dsn, c.log.Sub("Database"))
	if err != nil {
		return fmt.Errorf("open device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = container.Close()
		return fmt.Errorf("load device: %w", err)
	}

	cli := whatsmeow.NewClient(deviceStore, c.log.Sub("Client"))
	// A dropped connection is terminal for the session; restarts are explicit.
	cli.EnableAutoReconnect = false
	cli.AddEventHandler(c.handleEvent)

	if proxyAddr := proxyAddress(c.opts.Proxy); proxyAddr != "" {
		if err := cli.SetProxyAddress(proxyAddr); err != nil {
			_ = container.Close()
			return fmt.Errorf("configure proxy %s: %w", c.opts.Proxy.Server, err)
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())

	if cli.Store.ID == nil {
		qrChan, err := cli.GetQRChannel(runCtx)
		if err != nil {
			cancel()
			_ = container.Close()
			return fmt.Errorf("get QR channel: %w", err)
		}
		if err := cli.Connect(); err != nil {
			cancel()
			_ = container.Close()
			return fmt.Errorf("connect: %w", err)
		}
		go c.watchQR(qrChan)
	} else if err := cli.Connect(); err != nil {
		cancel()
		_ = container.Close()
		return fmt.Errorf("connect: %w", err)
	}

	c.container = container
	c.client = cli
	c.cancel = cancel
	return nil
}

func (c *WhatsmeowClient) Destroy(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.cancel != nil {
		c.cancel()
	}
	if c.client != nil {
		c.client.RemoveEventHandlers()
		c.client.Disconnect()
	}
	if c.container != nil {
		if err := c.container.Close(); err != nil {
			return fmt.Errorf("close device store: %w", err)
		}
	}
	return nil
}

func (c *WhatsmeowClient) Logout(ctx context.Context) error {
	cli, err := c.active()
	if err != nil {
		return err
	}
	if cli.Store.ID == nil {
		return nil
	}
	return cli.Logout(ctx)
}

func (c *WhatsmeowClient) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.client != nil && c.client.IsConnected()
}

func (c *WhatsmeowClient) SendText(ctx context.Context, to, body string) (SentMessage, error) {
	cli, err := c.active()
	if err != nil {
		return SentMessage{}, err
	}

	recipient, err := formatPhoneNumber(to)
	if err != nil {
		return SentMessage{}, err
	}

	msg := &waProto.Message{
		Conversation: proto.String(body),
	}
	resp, err := cli.SendMessage(ctx, recipient, msg)
	if err != nil {
		return SentMessage{}, fmt.Errorf("send message: %w", err)
	}

	return SentMessage{
		ID:        resp.ID,
		To:        recipient.String(),
		Timestamp: resp.Timestamp,
	}, nil
}

func (c *WhatsmeowClient) Contacts(ctx context.Context) ([]Contact, error) {
	cli, err := c.active()
	if err != nil {
		return nil, err
	}

	contacts, err := cli.Store.Contacts.GetAllContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("get contacts: %w", err)
	}

	out := make([]Contact, 0, len(contacts))
	for jid, info := range contacts {
		out = append(out, Contact{
			JID:          jid.String(),
			PushName:     info.PushName,
			FirstName:    info.FirstName,
			FullName:     info.FullName,
			BusinessName: info.BusinessName,
		})
	}
	return out, nil
}

func (c *WhatsmeowClient) Channels(context.Context) ([]Channel, error) {
	return nil, &NotSupportedError{Operation: "channels", Backend: backendWhatsmeow}
}

func (c *WhatsmeowClient) active() (*whatsmeow.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.client == nil {
		return nil, errClientClosed
	}
	return c.client, nil
}

func (c *WhatsmeowClient) emit(evt Event) {
	if c.opts.OnEvent != nil {
		c.opts.OnEvent(evt)
	}
}

func (c *WhatsmeowClient) watchQR(items <-chan whatsmeow.QRChannelItem) {
	for item := range items {
		switch item.Event {
		case "code":
			c.emit(Event{Kind: EventQR, QR: item.Code})
		case "success":
			c.emit(Event{Kind: EventAuthenticated})
		case "timeout":
			c.emit(Event{Kind: EventAuthFailure, Reason: "QR code expired before it was scanned"})
		default:
			reason := item.Event
			if item.Error != nil {
				reason = fmt.Sprintf("%s: %v", item.Event, item.Error)
			}
			c.emit(Event{Kind: EventAuthFailure, Reason: reason})
		}
	}
}

func (c *WhatsmeowClient) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *waEvents.Connected:
		c.mu.Lock()
		cli := c.client
		c.mu.Unlock()
		ready := Event{Kind: EventReady}
		if cli != nil && cli.Store.ID != nil {
			ready.Phone = cli.Store.ID.User
			ready.PushName = cli.Store.PushName
		}
		c.emit(ready)
	case *waEvents.Message:
		c.emit(Event{Kind: EventMessage, Message: convertMessage(v)})
	case *waEvents.Receipt:
		ids := make([]string, len(v.MessageIDs))
		for i, id := range v.MessageIDs {
			ids[i] = string(id)
		}
		c.emit(Event{Kind: EventMessageAck, Ack: &Ack{
			MessageIDs: ids,
			Chat:       v.Chat.String(),
			Type:       string(v.Type),
			Timestamp:  v.Timestamp,
		}})
	case *waEvents.LoggedOut:
		c.emit(Event{Kind: EventDisconnected, Reason: ReasonLogout})
	case *waEvents.StreamReplaced:
		c.emit(Event{Kind: EventDisconnected, Reason: "stream replaced by another connection"})
	case *waEvents.Disconnected:
		c.emit(Event{Kind: EventDisconnected, Reason: "connection closed"})
	case *waEvents.ConnectFailure:
		c.emit(Event{Kind: EventAuthFailure, Reason: fmt.Sprintf("connect failure: %v", v.Reason)})
	case *waEvents.TemporaryBan:
		c.emit(Event{Kind: EventAuthFailure, Reason: fmt.Sprint(v)})
	}
}

func convertMessage(v *waEvents.Message) *Message {
	msg := &Message{
		ID:        v.Info.ID,
		From:      v.Info.Sender.String(),
		Chat:      v.Info.Chat.String(),
		Type:      "text",
		FromMe:    v.Info.IsFromMe,
		IsGroup:   v.Info.IsGroup,
		PushName:  v.Info.PushName,
		Timestamp: v.Info.Timestamp,
	}
	switch {
	case v.Message == nil:
		msg.Type = "unknown"
	case v.Message.GetConversation() != "":
		msg.Body = v.Message.GetConversation()
	case v.Message.GetExtendedTextMessage() != nil:
		msg.Body = v.Message.GetExtendedTextMessage().GetText()
	case v.Message.GetImageMessage() != nil:
		msg.Type = "image"
		msg.Body = v.Message.GetImageMessage().GetCaption()
	case v.Message.GetVideoMessage() != nil:
		msg.Type = "video"
		msg.Body = v.Message.GetVideoMessage().GetCaption()
	case v.Message.GetAudioMessage() != nil:
		msg.Type = "audio"
	case v.Message.GetDocumentMessage() != nil:
		msg.Type = "document"
		msg.Body = v.Message.GetDocumentMessage().GetTitle()
	default:
		msg.Type = "unsupported"
	}
	return msg
}

// formatPhoneNumber turns a phone number or full JID into a recipient JID.
func formatPhoneNumber(phoneNumber string) (waTypes.JID, error) {
	if strings.Contains(phoneNumber, "@") {
		jid, err := waTypes.ParseJID(phoneNumber)
		if err != nil {
			return waTypes.JID{}, fmt.Errorf("invalid recipient %q: %w", phoneNumber, err)
		}
		return jid, nil
	}

	clean := strings.TrimPrefix(nonDigits.ReplaceAllString(phoneNumber, ""), "+")
	if len(clean) < 10 {
		return waTypes.JID{}, fmt.Errorf("invalid phone number %q: too short", phoneNumber)
	}
	return waTypes.NewJID(clean, waTypes.DefaultUserServer), nil
}

func proxyAddress(p Proxy) string {
	server := strings.TrimSpace(p.Server)
	if server == "" {
		return ""
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return server
	}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u.String()
}
