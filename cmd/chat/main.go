package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/walletchat/backend/internal/apiclient"
	"github.com/walletchat/backend/internal/chat"
	"github.com/walletchat/backend/internal/config"
	"github.com/walletchat/backend/internal/http/dto"
	"github.com/walletchat/backend/internal/models"
	"github.com/walletchat/backend/internal/quota"
	"github.com/walletchat/backend/internal/wallet"
)

var commands = []string{
	"/connect", "/disconnect", "/balance",
	"/channels", "/new", "/join", "/leave", "/open",
	"/users", "/profile", "/status",
	"/help", "/quit",
}

type app struct {
	cfg     *config.Config
	log     *zap.Logger
	client  *apiclient.Client
	key     *wallet.KeyProvider
	session *wallet.Session
	store   *chat.Store
}

func main() {
	log, _ := zap.NewDevelopment()
	defer log.Sync()

	cfg := config.Load()

	client := apiclient.New(cfg.APIBaseURL, cfg.WSBaseURL)

	key, err := wallet.NewKeyProvider(cfg.KeystorePath, cfg.TONNetwork, client)
	if err != nil {
		log.Fatal("open keystore", zap.Error(err))
	}

	guard, err := quota.Open(cfg.QuotaDBPath)
	if err != nil {
		log.Fatal("open quota store", zap.Error(err))
	}
	defer guard.Close()

	session := wallet.NewSession(key, log)
	feed := apiclient.NewRealtimeFeed(client, log)
	store := chat.NewStore(client, feed, guard, session, cfg.CallTimeout, log)
	defer store.Close()

	a := &app{cfg: cfg, log: log, client: client, key: key, session: session, store: store}

	store.SetOnAppend(func(m models.Message) {
		if m.ChannelID.String() != store.State().CurrentChannelID {
			return
		}
		ts := time.UnixMilli(m.Timestamp).Format("15:04:05")
		body := m.Content
		if m.Encrypted {
			body = "<encrypted>"
		}
		fmt.Printf("\r[%s] %s: %s\n", ts, shortAddr(m.Sender), body)
	})

	a.repl()
}

func (a *app) repl() {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	line.SetCompleter(func(prefix string) (out []string) {
		for _, c := range commands {
			if strings.HasPrefix(c, prefix) {
				out = append(out, c)
			}
		}
		return out
	})

	fmt.Println("walletchat. /connect to start, /help for commands.")

	for {
		input, err := line.Prompt(a.prompt())
		if err == liner.ErrPromptAborted || err == io.EOF {
			return
		}
		if err != nil {
			a.log.Error("read line", zap.Error(err))
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if input == "/quit" {
			return
		}
		if err := a.dispatch(input); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func (a *app) prompt() string {
	st := a.session.State()
	if !st.Connected {
		return "(offline)> "
	}
	if ch := a.store.State().CurrentChannel(); ch != nil {
		return fmt.Sprintf("%s #%s> ", shortAddr(st.Address), ch.Name)
	}
	return shortAddr(st.Address) + "> "
}

func (a *app) dispatch(input string) error {
	ctx := context.Background()

	if !strings.HasPrefix(input, "/") {
		// Bare text goes to the current channel.
		if a.store.State().CurrentChannelID == "" {
			return errors.New("no channel open, /open one first")
		}
		return a.store.SendMessage(ctx, input)
	}

	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		fmt.Println("  /connect             connect the wallet and sign in")
		fmt.Println("  /disconnect          drop the session")
		fmt.Println("  /balance             show the wallet balance")
		fmt.Println("  /channels            list channels")
		fmt.Println("  /new <name>          create a channel and open it")
		fmt.Println("  /join <name|id>      join a channel")
		fmt.Println("  /leave [name|id]     leave a channel (default: current)")
		fmt.Println("  /open <name|id>      open a channel")
		fmt.Println("  /users               list known profiles")
		fmt.Println("  /profile <name>      set the display name")
		fmt.Println("  /status <status>     set presence (online/away/offline)")
		fmt.Println("  /quit                exit")
		return nil

	case "/connect":
		return a.connect(ctx)

	case "/disconnect":
		a.session.Disconnect()
		a.client.Disconnect()
		return nil

	case "/balance":
		if err := a.session.RefreshBalance(ctx); err != nil {
			return err
		}
		fmt.Println("balance:", a.session.State().Balance)
		return nil

	case "/channels":
		if err := a.store.FetchChannels(ctx); err != nil {
			return err
		}
		for _, ch := range a.store.State().Channels {
			fmt.Printf("  #%-20s %d members  %s\n", ch.Name, len(ch.Participants), ch.ID)
		}
		return nil

	case "/new":
		if arg == "" {
			return errors.New("usage: /new <name>")
		}
		_, err := a.store.CreateChannel(ctx, arg, "", false)
		return err

	case "/join":
		ch, err := a.resolveChannel(ctx, arg)
		if err != nil {
			return err
		}
		if err := a.store.JoinChannel(ctx, ch.ID.String()); err != nil {
			return err
		}
		return a.store.SelectChannel(ctx, ch.ID.String())

	case "/leave":
		id := a.store.State().CurrentChannelID
		if arg != "" {
			ch, err := a.resolveChannel(ctx, arg)
			if err != nil {
				return err
			}
			id = ch.ID.String()
		}
		if id == "" {
			return errors.New("no channel to leave")
		}
		return a.store.LeaveChannel(ctx, id)

	case "/open":
		ch, err := a.resolveChannel(ctx, arg)
		if err != nil {
			return err
		}
		if err := a.store.SelectChannel(ctx, ch.ID.String()); err != nil {
			return err
		}
		for _, m := range a.store.State().Messages[ch.ID.String()] {
			ts := time.UnixMilli(m.Timestamp).Format("15:04:05")
			fmt.Printf("[%s] %s: %s\n", ts, shortAddr(m.Sender), m.Content)
		}
		return nil

	case "/users":
		if err := a.store.FetchUsers(ctx); err != nil {
			return err
		}
		for _, u := range a.store.State().Users {
			name := shortAddr(u.Address)
			if u.DisplayName != nil {
				name = *u.DisplayName
			}
			fmt.Printf("  %-24s %s\n", name, u.Status)
		}
		return nil

	case "/profile":
		if arg == "" {
			return errors.New("usage: /profile <display name>")
		}
		return a.store.UpdateProfile(ctx, &arg, nil, models.StatusOnline)

	case "/status":
		return a.store.UpdateProfile(ctx, nil, nil, arg)

	default:
		return fmt.Errorf("unknown command %s", cmd)
	}
}

// connect runs the full handshake: nonce, signed proof, token, wallet state.
func (a *app) connect(ctx context.Context) error {
	payload, err := a.client.ProofPayload(ctx)
	if err != nil {
		return fmt.Errorf("request proof payload: %w", err)
	}

	address, pubKey, proof, err := a.key.ConnectProof(a.cfg.ProofDomain, payload)
	if err != nil {
		return err
	}

	auth, err := a.client.Connect(ctx, dto.ConnectWalletRequest{
		Address:   address,
		Network:   a.cfg.TONNetwork,
		PublicKey: pubKey,
		Proof:     proof,
	})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	if err := a.session.Connect(ctx); err != nil {
		return err
	}

	fmt.Printf("connected as %s (%s)\n", shortAddr(auth.Address), auth.Network)
	return nil
}

// resolveChannel accepts a channel name or id, refreshing the list on miss.
func (a *app) resolveChannel(ctx context.Context, arg string) (*models.Channel, error) {
	if arg == "" {
		return nil, errors.New("channel name or id required")
	}

	find := func() *models.Channel {
		st := a.store.State()
		for i := range st.Channels {
			if st.Channels[i].Name == arg || st.Channels[i].ID.String() == arg {
				c := st.Channels[i]
				return &c
			}
		}
		return nil
	}

	if ch := find(); ch != nil {
		return ch, nil
	}
	if err := a.store.FetchChannels(ctx); err != nil {
		return nil, err
	}
	if ch := find(); ch != nil {
		return ch, nil
	}
	return nil, fmt.Errorf("no channel %q", arg)
}

func shortAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:8] + "…" + addr[len(addr)-4:]
}
