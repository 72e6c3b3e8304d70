// ABOUTME: Interactive chat command with readline input and streamed output.
// ABOUTME: Slash commands handle permissions, stop, session switching, and exit.

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hcnode/cui/internal/api"
	"github.com/hcnode/cui/internal/controller"
	"github.com/hcnode/cui/internal/convo"
	"github.com/hcnode/cui/internal/stream"
)

var (
	chatModel          string
	chatPermissionMode string
	chatWorkingDir     string
)

var chatCmd = &cobra.Command{
	Use:   "chat [session-id]",
	Short: "Open an interactive conversation",
	Long: `Open an interactive conversation against the backend. With a
session id the existing conversation is loaded and, if a turn is still
streaming, its live output attaches. Without one the first prompt starts
a fresh conversation.

Tool requests pause the turn until you /approve or /deny them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := ""
		if len(args) > 0 {
			sessionID = args[0]
		}
		return runChat(cmd.Context(), sessionID)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatModel, "model", "", "Model for new turns (default from preferences)")
	chatCmd.Flags().StringVar(&chatPermissionMode, "permission-mode", "", "Permission mode for new turns (default from preferences)")
	chatCmd.Flags().StringVar(&chatWorkingDir, "cwd", "", "Working directory for new turns (default from preferences)")
}

func runChat(ctx context.Context, sessionID string) error {
	prefs, err := loadPreferences()
	if err != nil {
		return err
	}

	backendURL := resolveBackend(prefs)
	token := resolveToken()
	logger := clientLogger()

	model := chatModel
	if model == "" {
		model = prefs.Chat.Model
	}
	permissionMode := chatPermissionMode
	if permissionMode == "" {
		permissionMode = prefs.Chat.PermissionMode
	}
	workingDir := chatWorkingDir
	if workingDir == "" {
		workingDir = prefs.Chat.WorkingDir
	}

	fmt.Printf("cui connected to %s\n", backendURL)
	if token != "" {
		fmt.Println("Auth: bearer token configured")
	} else {
		fmt.Println("Auth: none (set CUI_TOKEN or run 'cui token new --save')")
	}
	fmt.Println("Type a prompt and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	client := api.New(backendURL, token, logger)
	streams := controller.SSEStreamer{Subscriber: stream.NewSubscriber(backendURL, token, logger)}

	// The Update hook only signals; rendering happens on its own goroutine
	// so hooks never call back into the controller.
	updates := make(chan struct{}, 1)
	hooks := controller.Hooks{
		Update: func() {
			select {
			case updates <- struct{}{}:
			default:
			}
		},
	}

	ctrl := controller.New(client, streams, hooks, logger)
	defer ctrl.Close()

	view := newChatView(ctrl, os.Stdout)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	defer func() {
		close(stop)
		wg.Wait()
		view.setSpinner(false)
	}()

	// Load the named session before the render goroutine starts so a bad
	// session id fails the command instead of racing the banner.
	if sessionID != "" {
		ctrl.SetSession(ctx, sessionID)
		if errText := ctrl.ErrorText(); errText != "" {
			return fmt.Errorf("%s", errText)
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			case <-updates:
				view.render()
			}
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		waitIdle(ctx, ctrl)
		if ctx.Err() != nil {
			fmt.Println("\nGoodbye!")
			return nil
		}

		printPrompt(ctrl)

		line, err := readLine(ctx, scanner)
		if err != nil {
			if err == io.EOF || ctx.Err() != nil {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Controller action errors surface through the view's error
		// banner, so they are not printed a second time here.
		switch {
		case line == "/quit" || line == "/exit" || line == "/q":
			fmt.Println("Goodbye!")
			return nil

		case line == "/help":
			printChatHelp()

		case line == "/approve":
			if _, ok := ctrl.CurrentPermission(); !ok {
				fmt.Println("No approval pending")
				continue
			}
			ctrl.Decide(ctx, api.DecisionApprove, "")

		case line == "/deny" || strings.HasPrefix(line, "/deny "):
			if _, ok := ctrl.CurrentPermission(); !ok {
				fmt.Println("No approval pending")
				continue
			}
			reason := strings.TrimSpace(strings.TrimPrefix(line, "/deny"))
			ctrl.Decide(ctx, api.DecisionDeny, reason)

		case line == "/stop":
			if ctrl.StreamingID() == "" {
				fmt.Println("Nothing to stop")
				continue
			}
			ctrl.Stop(ctx)

		case line == "/sessions" || strings.HasPrefix(line, "/sessions "):
			arg := strings.TrimSpace(strings.TrimPrefix(line, "/sessions"))
			if arg == "" {
				if err := printRecentSessions(ctx, client); err != nil {
					fmt.Printf("[error] %v\n", err)
				}
			} else {
				ctrl.SetSession(ctx, arg)
			}

		case line == "/cd" || strings.HasPrefix(line, "/cd "):
			arg := strings.TrimSpace(strings.TrimPrefix(line, "/cd"))
			if arg == "" {
				dir := workingDir
				if dir == "" {
					dir = ctrl.WorkingDir()
				}
				if dir == "" {
					fmt.Println("No working directory set")
				} else {
					fmt.Println(dir)
				}
			} else {
				workingDir = arg
				fmt.Printf("Working directory for new turns: %s\n", arg)
			}

		case strings.HasPrefix(line, "/"):
			fmt.Printf("Unknown command: %s (/help for commands)\n", line)

		default:
			ctrl.Send(ctx, controller.SendOptions{
				Text:           line,
				WorkingDir:     workingDir,
				Model:          model,
				PermissionMode: permissionMode,
			})
		}
	}
}

// waitIdle blocks until no load or stream is in flight, or a permission
// request needs a decision. Returns early on ctx cancellation.
func waitIdle(ctx context.Context, ctrl *controller.Controller) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, ok := ctrl.CurrentPermission(); ok {
			return
		}
		if !ctrl.Loading() && ctrl.StreamingID() == "" {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func printPrompt(ctrl *controller.Controller) {
	sid := ctrl.SessionID()
	if sid == "" {
		fmt.Print("> ")
		return
	}
	if len(sid) > 8 {
		sid = sid[:8]
	}
	fmt.Printf("[%s]> ", sid)
}

// readLine reads one line with context awareness. The reader goroutine
// stays blocked in Scan after cancellation; the process is exiting anyway.
func readLine(ctx context.Context, scanner *bufio.Scanner) (string, error) {
	inputCh := make(chan string, 1)
	errCh := make(chan error, 1)

	go func() {
		if scanner.Scan() {
			inputCh <- scanner.Text()
		} else if err := scanner.Err(); err != nil {
			errCh <- err
		} else {
			errCh <- io.EOF
		}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errCh:
		return "", err
	case line := <-inputCh:
		return line, nil
	}
}

// printChatHelp displays available commands.
func printChatHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /approve           Approve the pending tool request")
	fmt.Println("  /deny [reason]     Deny the pending tool request")
	fmt.Println("  /stop              Stop the active turn")
	fmt.Println("  /sessions          List recent conversations")
	fmt.Println("  /sessions <id>     Switch to another conversation")
	fmt.Println("  /cd [dir]          Show or set the working directory for new turns")
	fmt.Println("  /help              Show this help")
	fmt.Println("  /quit              Exit the chat")
}

// printRecentSessions fetches and displays recent conversations inline.
func printRecentSessions(ctx context.Context, client *api.Client) error {
	summaries, err := client.Conversations(ctx, 10)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No conversations yet")
		return nil
	}
	for _, s := range summaries {
		title := s.SessionInfo.Title
		if title == "" {
			title = "(untitled)"
		}
		marker := " "
		if s.Status == api.StatusOngoing {
			marker = color.YellowString("*")
		}
		fmt.Printf("%s %s  %s\n", marker, s.SessionID, truncate(title, 60))
	}
	return nil
}

// chatView renders controller state incrementally: each update prints only
// what is new since the previous one. All fields belong to the render
// goroutine; setSpinner may be called from the main goroutine only after
// that goroutine has stopped.
type chatView struct {
	ctrl *controller.Controller
	spin *spinner.Spinner
	out  io.Writer

	session        string
	rendered       int
	printedResults map[string]bool
	permissionID   string
	errText        string
	spinning       bool
}

func newChatView(ctrl *controller.Controller, out io.Writer) *chatView {
	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	spin.Suffix = " loading conversation..."
	return &chatView{
		ctrl:           ctrl,
		spin:           spin,
		out:            out,
		printedResults: make(map[string]bool),
	}
}

func (v *chatView) render() {
	// Stop the spinner before printing so output lands on a clean line.
	v.setSpinner(false)

	sid := v.ctrl.SessionID()
	if sid != v.session {
		v.session = sid
		v.rendered = 0
		v.printedResults = make(map[string]bool)
		v.permissionID = ""
		if sid != "" {
			fmt.Fprintln(v.out, color.HiBlackString("[session "+sid+"]"))
		}
	}

	messages := v.ctrl.Messages()
	for _, msg := range messages[v.rendered:] {
		v.printMessage(msg)
	}
	v.rendered = len(messages)

	for id, result := range v.ctrl.ToolResults() {
		if v.printedResults[id] {
			continue
		}
		v.printResultLine(result.Content, result.IsError)
		v.printedResults[id] = true
	}

	if perm, ok := v.ctrl.CurrentPermission(); ok {
		if perm.ID != v.permissionID {
			v.permissionID = perm.ID
			v.printPermission(perm)
		}
	} else {
		v.permissionID = ""
	}

	if errText := v.ctrl.ErrorText(); errText != "" && errText != v.errText {
		fmt.Fprintln(v.out, color.RedString("[error] "+errText))
		v.errText = errText
	} else if errText == "" {
		v.errText = ""
	}

	v.setSpinner(v.ctrl.Loading())
}

func (v *chatView) setSpinner(on bool) {
	if on && !v.spinning {
		v.spin.Start()
		v.spinning = true
	} else if !on && v.spinning {
		v.spin.Stop()
		v.spinning = false
	}
}

func (v *chatView) printMessage(msg convo.Message) {
	text := msg.DisplayText()
	switch msg.Type {
	case convo.MessageTypeUser:
		if text != "" {
			fmt.Fprintf(v.out, "%s %s\n", color.GreenString("you>"), text)
		}
	case convo.MessageTypeAssistant:
		if text != "" {
			fmt.Fprintf(v.out, "%s %s\n", color.CyanString("agent>"), text)
		}
	default:
		if text != "" {
			fmt.Fprintf(v.out, "[%s] %s\n", msg.Type, text)
		}
	}

	for _, block := range msg.Blocks {
		switch block.Type {
		case api.BlockToolUse:
			fmt.Fprintf(v.out, "%s %s %s\n", color.YellowString("[tool]"), block.Name, color.HiBlackString(string(block.Input)))
		case api.BlockToolResult:
			if block.ToolUseID != "" {
				v.printResultLine(block.Content, block.IsError)
				v.printedResults[block.ToolUseID] = true
			}
		}
	}
}

func (v *chatView) printResultLine(content string, isError bool) {
	if isError {
		fmt.Fprintf(v.out, "%s %s\n", color.RedString("[tool error]"), truncate(content, 200))
		return
	}
	fmt.Fprintf(v.out, "%s %s\n", color.GreenString("[tool done]"), color.HiBlackString(truncate(content, 200)))
}

func (v *chatView) printPermission(req api.PermissionRequest) {
	fmt.Fprintf(v.out, "%s %s %s\n", color.YellowString("[approval needed]"), req.ToolName, color.HiBlackString(string(req.Input)))
	fmt.Fprintln(v.out, color.YellowString("type /approve or /deny [reason]"))
}
