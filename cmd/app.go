package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/wislaw/lexchat/pkg/chat"
	"github.com/wislaw/lexchat/pkg/config"
	"github.com/wislaw/lexchat/pkg/documents"
	"github.com/wislaw/lexchat/pkg/session"
	"github.com/wislaw/lexchat/pkg/store"
	"github.com/wislaw/lexchat/pkg/transport"
)

// app wires the session manager to a line-oriented terminal loop.
type app struct {
	cfg     *config.Config
	manager *session.Manager
	store   store.Store
	docs    *documents.Client
}

func newApp(cfg *config.Config) (*app, error) {
	st, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	tp := transport.NewClient(cfg.Backend.URL, cfg.Backend.Jurisdiction, cfg.Backend.Timeout)
	manager := session.NewManager(tp, st, cfg.Chat.Greeting, cfg.AutoSave.Enabled)

	a := &app{
		cfg:     cfg,
		manager: manager,
		store:   st,
		docs:    documents.NewClient(cfg.Backend.URL, cfg.Backend.Timeout),
	}

	manager.SetStreamCallback(func(content string) {
		fmt.Print(content)
	})
	manager.SetNotifier(func(message string) {
		fmt.Println(noticeStyle.Render("\n! " + message))
	})

	return a, nil
}

func newStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Provider {
	case "file":
		return store.NewFileStore(cfg.Store.Directory)
	case "http", "":
		return store.NewClient(cfg.Backend.URL, cfg.Backend.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown store provider %q", cfg.Store.Provider)
	}
}

// runOnce asks a single question and exits.
func (a *app) runOnce(question string) error {
	if err := a.manager.Submit(question); err != nil {
		return err
	}
	a.waitForTurn(nil)
	fmt.Println()
	a.printSources(a.manager.CurrentSources())
	a.manager.WaitForSaves()
	return nil
}

// runInteractive is the main conversation loop.
func (a *app) runInteractive() error {
	a.printGreeting()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("\n> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := a.handleCommand(line); quit {
				break
			}
			continue
		}

		if err := a.manager.Submit(line); err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			continue
		}
		a.waitForTurn(interrupts)
		fmt.Println()
		a.printSources(a.manager.CurrentSources())
	}

	a.manager.WaitForSaves()
	return nil
}

// waitForTurn blocks until the in-flight turn settles. An interrupt stops
// the stream; the partial answer stays in the transcript.
func (a *app) waitForTurn(interrupts <-chan os.Signal) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if a.manager.State() != session.StateStreaming {
				return
			}
		case <-interrupts:
			a.manager.Stop()
			fmt.Println(noticeStyle.Render("\n[stopped]"))
			return
		}
	}
}

func (a *app) handleCommand(line string) (quit bool) {
	fields := strings.Fields(line)
	command := fields[0]
	args := fields[1:]

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Backend.Timeout)
	defer cancel()

	switch command {
	case "/quit", "/exit":
		return true

	case "/help":
		a.printHelp()

	case "/new":
		a.manager.NewSession()
		fmt.Println(noticeStyle.Render("Started a new chat."))

	case "/history":
		for _, msg := range a.manager.Messages() {
			prefix := msg.Role + ": "
			if msg.IsError() {
				fmt.Println(errorStyle.Render(prefix + msg.Content))
				continue
			}
			fmt.Println(prefix + msg.Content)
		}

	case "/save":
		name := strings.Join(args, " ")
		if name == "" {
			name = a.manager.DisplayName()
		}
		if name == "" {
			name = chat.FallbackName
		}
		filename, err := a.manager.SaveAs(ctx, name)
		if err != nil {
			fmt.Println(errorStyle.Render("Save failed: " + err.Error()))
			break
		}
		fmt.Println(noticeStyle.Render(fmt.Sprintf("Saved %q as %s", name, filename)))

	case "/sessions":
		a.printSessions(ctx)

	case "/load":
		if len(args) != 1 {
			fmt.Println(noticeStyle.Render("Usage: /load <filename>"))
			break
		}
		if err := a.manager.LoadSession(ctx, args[0]); err != nil {
			fmt.Println(errorStyle.Render("Load failed: " + err.Error()))
			break
		}
		fmt.Println(noticeStyle.Render("Loaded " + a.manager.DisplayName()))

	case "/sources":
		a.printSources(a.manager.CurrentSources())

	case "/download":
		if len(args) != 1 {
			fmt.Println(noticeStyle.Render("Usage: /download <source number>"))
			break
		}
		a.downloadSource(ctx, args[0])

	case "/autosave":
		enabled := len(args) == 1 && args[0] == "on"
		a.manager.SetAutoSave(enabled)
		fmt.Println(noticeStyle.Render(fmt.Sprintf("Auto-save %v", enabled)))

	default:
		fmt.Println(noticeStyle.Render("Unknown command. Try /help."))
	}
	return false
}

func (a *app) printGreeting() {
	fmt.Println(headerStyle.Render("lexchat — legal research assistant"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if count, err := a.docs.Count(ctx); err == nil {
		fmt.Println(sourceMetaStyle.Render(fmt.Sprintf("%d documents indexed", count)))
	}

	if msgs := a.manager.Messages(); len(msgs) > 0 {
		fmt.Println("\n" + msgs[0].Content)
	}
	fmt.Println(sourceMetaStyle.Render("Type a question, or /help for commands."))
}

func (a *app) printHelp() {
	fmt.Println(`Commands:
  /help              show this help
  /history           show the current transcript
  /sources           show citations for the last answer
  /download <n>      download the file behind source n
  /save [name]       save the session under a name
  /sessions          list saved sessions
  /load <filename>   load a saved session
  /new               start a fresh chat (cancels any stream)
  /autosave on|off   toggle auto-save
  /quit              exit`)
}

func (a *app) printSessions(ctx context.Context) {
	summaries, err := a.store.List(ctx)
	if err != nil {
		fmt.Println(errorStyle.Render("Failed to list sessions: " + err.Error()))
		return
	}
	if len(summaries) == 0 {
		fmt.Println(noticeStyle.Render("No saved sessions."))
		return
	}
	for _, s := range summaries {
		fmt.Printf("%s  %s  (%d exchanges)\n",
			sourceTitleStyle.Render(s.ChatName),
			sourceMetaStyle.Render(s.Filename),
			s.ExchangeCount)
	}
}

func (a *app) printSources(sources []chat.SourceRef) {
	if len(sources) == 0 {
		return
	}
	fmt.Println(headerStyle.Render("\nSources"))
	for _, src := range sources {
		fmt.Printf("%s %s\n",
			sourceTitleStyle.Render(fmt.Sprintf("[%d]", src.SourceNumber)),
			sourceTitleStyle.Render(src.Title))
		fmt.Println(sourceMetaStyle.Render(fmt.Sprintf(
			"    %s | %s | %s | relevance %.2f",
			src.DocumentType, src.Jurisdiction, src.Section, src.RelevanceScore)))
		if len(src.Citations) > 0 {
			fmt.Println(sourceMetaStyle.Render("    cites: " + strings.Join(src.Citations, ", ")))
		}
	}
}

func (a *app) downloadSource(ctx context.Context, arg string) {
	number, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Println(noticeStyle.Render("Source number must be an integer."))
		return
	}

	for _, src := range a.manager.CurrentSources() {
		if src.SourceNumber != number {
			continue
		}
		if src.Filename == "" {
			fmt.Println(noticeStyle.Render("That source has no downloadable file."))
			return
		}
		data, err := a.docs.Download(ctx, src.Filename)
		if err != nil {
			fmt.Println(errorStyle.Render("Download failed: " + err.Error()))
			return
		}
		if err := os.WriteFile(src.Filename, data, 0644); err != nil {
			fmt.Println(errorStyle.Render("Failed to write file: " + err.Error()))
			return
		}
		fmt.Println(noticeStyle.Render("Saved " + src.Filename))
		return
	}
	fmt.Println(noticeStyle.Render("No such source in the last answer."))
}
