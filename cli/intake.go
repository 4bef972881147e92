package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vaultx/vaultx-term/client"
	"github.com/vaultx/vaultx-term/tokens"
	"github.com/vaultx/vaultx-term/transcript"
)

func newIntakeCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Talk to the virtual nurse",
	}
	cmd.AddCommand(newIntakeSayCmd(e))
	return cmd
}

// intakeResult is the structured output of intake say.
type intakeResult struct {
	Messages  []transcript.Message `json:"messages"`
	State     string               `json:"state"`
	SessionID string               `json:"session_id,omitempty"`
}

func newIntakeSayCmd(e *env) *cobra.Command {
	var (
		submit  bool
		patient client.SubmitRequest
	)
	cmd := &cobra.Command{
		Use:   "say <message>...",
		Short: "Send one turn per argument and stream the replies",
		Long: `Each argument is sent as one patient message, in order, within a single
conversation. Replies stream to stdout as they arrive in text mode. With
--submit the finished conversation is filed as a new case.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := transcript.New(transcript.Greeting)
			var counter tokens.Counter = tokens.Heuristic{}
			if e.cfg.HistoryTokenBudget > 0 {
				counter = tokens.NewTiktoken(e.log)
			}
			a.SetHistoryBudget(e.cfg.HistoryTokenBudget, counter)

			stream := e.output == "text"
			w := cmd.OutOrStdout()
			if stream {
				fmt.Fprintf(w, "Nurse: %s\n", transcript.Greeting)
			}

			for _, text := range args {
				if stream {
					fmt.Fprintf(w, "\nYou: %s\nNurse: ", strings.TrimSpace(text))
				}
				printer := &replyPrinter{w: w}
				onChange := func(s transcript.Snapshot) {
					if stream {
						printer.update(s)
					}
				}
				eff, err := transcript.Run(ctx, a, e.api, text, onChange)
				if err != nil {
					return err
				}
				if stream {
					fmt.Fprintln(w)
				}
				if err := turnError(eff, a.Snapshot()); err != nil {
					return err
				}
			}

			snap := a.Snapshot()
			used := 0
			for _, m := range snap.Messages {
				used += counter.Count(m.Content)
			}
			e.log.Debug("intake conversation finished",
				zap.Int("turns", len(args)),
				zap.Int("tokens", used))

			result := intakeResult{Messages: snap.Messages, State: snap.State.String()}
			if submit {
				req := patient
				req.Transcript = a.Transcript()
				resp, err := e.api.SubmitIntake(ctx, req)
				if err != nil {
					return err
				}
				result.SessionID = resp.SessionID
			}

			if stream {
				if result.SessionID != "" {
					fmt.Fprintf(w, "\nSubmitted as case %s.\n", result.SessionID)
				}
				return nil
			}
			return e.write(cmd, result, func(io.Writer) {})
		},
	}
	cmd.Flags().BoolVar(&submit, "submit", false, "Submit the conversation as a new case")
	cmd.Flags().StringVar(&patient.PatientName, "name", "", "Patient name sent with --submit")
	cmd.Flags().StringVar(&patient.PatientDOB, "dob", "", "Patient date of birth sent with --submit")
	cmd.Flags().StringVar(&patient.Phone, "phone", "", "Patient phone sent with --submit")
	cmd.Flags().StringVar(&patient.Email, "email", "", "Patient email sent with --submit")
	return cmd
}

// turnError maps how a turn ended to the command's error.
func turnError(eff transcript.Effect, s transcript.Snapshot) error {
	switch {
	case eff.SignedOut:
		return errSessionRejected
	case eff.Notice != nil:
		return fmt.Errorf("%s: %s", eff.Notice.Title, eff.Notice.Message)
	case s.State == transcript.Cancelled:
		return errors.New("turn cancelled")
	}
	return nil
}

// replyPrinter writes the part of the streaming reply not yet printed.
type replyPrinter struct {
	w       io.Writer
	printed int // runes
}

func (p *replyPrinter) update(s transcript.Snapshot) {
	if !s.Open || len(s.Messages) == 0 {
		return
	}
	last := s.Messages[len(s.Messages)-1]
	if last.Role != transcript.RoleAssistant {
		return
	}
	r := []rune(last.Content)
	if len(r) <= p.printed {
		return
	}
	fmt.Fprint(p.w, string(r[p.printed:]))
	p.printed = len(r)
}
