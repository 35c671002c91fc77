package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"enstp-advisor-go/internal/app"
	"enstp-advisor-go/internal/model"
	"enstp-advisor-go/internal/service"

	"github.com/spf13/cobra"
)

const (
	cmdClear = "/clear"
	cmdQuit  = "/quit"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Discuter avec le conseiller dans le terminal",
	Long: `Ouvre une conversation avec le conseiller ENSTP.

Commandes:
  /clear   efface la conversation et revient au message d'accueil
  /quit    quitte`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// 终端会话只存在于本进程内
	local := *cfg
	local.Session.Store = "memory"

	a, err := app.New(ctx, &local)
	if err != nil {
		return fmt.Errorf("init advisor: %w", err)
	}
	defer a.Close()

	return chatLoop(ctx, a.Chat, cmd.InOrStdin(), cmd.OutOrStdout())
}

// chatLoop 逐行读取输入，直到 /quit 或输入结束。
func chatLoop(ctx context.Context, svc service.ChatService, in io.Reader, out io.Writer) error {
	snap, err := svc.StartSession(ctx)
	if err != nil {
		return err
	}
	id := snap.SessionID
	printTurns(out, snap.Turns)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "\nVous> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case cmdQuit:
			fmt.Fprintln(out, "Au revoir et bonne chance pour votre choix !")
			return nil
		case cmdClear:
			snap, err := svc.ClearConversation(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "(conversation effacée)")
			printTurns(out, snap.Turns)
			continue
		}

		fmt.Fprintln(out, "En train de réfléchir...")
		res, err := svc.SubmitTurn(ctx, id, line)
		if errors.Is(err, service.ErrEmptyInput) {
			continue
		}
		if err != nil {
			return err
		}
		printTurns(out, []model.Turn{res.Reply})
	}
}

func printTurns(out io.Writer, turns []model.Turn) {
	for _, t := range turns {
		label := "Conseiller ENSTP"
		if t.Role == model.SpeakerUser {
			label = "Vous"
		}
		fmt.Fprintf(out, "\n%s: %s\n", label, t.Content)
	}
}
