// Command player is a headless game client. It joins a team, follows the
// game over the event stream and answers each scenario with a fixed pick,
// falling back to the timer penalty when no pick is configured.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/playperu/harvest/internal/broadcast"
	"github.com/playperu/harvest/internal/config"
	"github.com/playperu/harvest/internal/harvest"
	"github.com/playperu/harvest/internal/session"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	team string
	name string
	crop string
	pick int
}

func parseFlags(args []string, out io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("player", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&o.team, "team", "", "team to claim (A, B or C); empty resumes the cached team")
	fs.StringVar(&o.name, "name", "", "team name")
	fs.StringVar(&o.crop, "crop", harvest.Crops[0], "team crop")
	fs.IntVar(&o.pick, "pick", -1, "choice position answered in every scenario; -1 waits for the deadline")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.team != "" {
		if _, ok := harvest.ParseTeamID(o.team); !ok {
			return o, fmt.Errorf("unknown team %q", o.team)
		}
		if o.name == "" {
			o.name = "Team " + o.team
		}
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, err := parseFlags(args, stdout)
	if err != nil {
		return err
	}
	cfg, err := config.LoadPlayer()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	client := session.NewClient(cfg.ServerURL, nil)
	catalog, err := client.Scenarios(ctx)
	if err != nil {
		return fmt.Errorf("loading scenarios: %w", err)
	}

	p := &player{logger: logger, catalog: catalog, pick: o.pick, answers: make(chan int, 1)}
	s, err := session.New(client, cfg.CacheFile, logger, session.WithOnChange(p.onChange))
	if err != nil {
		return err
	}
	p.session = s
	logger.Info("player ready", "client_id", s.Identity().ClientID, "team", s.Identity().TeamID)

	if o.team != "" && s.Identity().TeamID == "" {
		if err := s.Claim(ctx, harvest.TeamID(o.team), o.name, o.crop); err != nil {
			return fmt.Errorf("claiming team %s: %w", o.team, err)
		}
		logger.Info("claimed team", "team", o.team, "name", o.name)
	}

	go p.answerLoop(ctx)
	return s.Run(ctx)
}

type player struct {
	logger  *slog.Logger
	session *session.Session
	catalog harvest.Catalog
	pick    int
	answers chan int
}

func (p *player) onChange(typ broadcast.EventType, gs *harvest.GameState) {
	switch typ {
	case broadcast.EventReset:
		p.logger.Info("game was reset")
		return
	case broadcast.EventWinner:
		if gs != nil && gs.Results != nil {
			p.logger.Info("winner revealed", "winner", gs.Results.Winner, "leaderboard", gs.Results.Leaderboard)
		}
		return
	}
	if gs == nil {
		return
	}

	p.logger.Info("state", "phase", gs.Phase, "scenario", gs.ScenarioIndex)
	team := p.session.Identity().TeamID
	if team == "" || gs.Phase != harvest.PhaseRunning || gs.Teams[team].Answered(gs.ScenarioIndex) {
		return
	}
	select {
	case p.answers <- gs.ScenarioIndex:
	default:
	}
}

// answerLoop selects the configured choice for each new scenario and
// submits it. Without a pick the session resolves the deadline.
func (p *player) answerLoop(ctx context.Context) {
	done := map[int]bool{}
	for {
		select {
		case <-ctx.Done():
			return
		case idx := <-p.answers:
			if p.pick < 0 || done[idx] || idx >= len(p.catalog) {
				continue
			}
			choices := p.catalog[idx].Choices
			if p.pick >= len(choices) {
				p.logger.Warn("pick out of range", "scenario", idx, "choices", len(choices))
				continue
			}
			choice := choices[p.pick].ID
			if err := p.session.Select(choice); err != nil {
				p.logger.Warn("selecting choice", "error", err)
			}
			if err := p.session.Answer(ctx, choice); err != nil {
				p.logger.Warn("answering", "scenario", idx, "error", err)
				continue
			}
			done[idx] = true
			p.logger.Info("answered", "scenario", idx, "choice", choice)
		}
	}
}
