// boardgraph-tui runs the generation pipeline with a terminal progress view:
// stage status, a progress bar across detail batches, and a final summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/meeplelab/boardgraph/pkg/bgg"
	"github.com/meeplelab/boardgraph/pkg/export"
	"github.com/meeplelab/boardgraph/pkg/pipeline"
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(60)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(60)
)

type stageMsg pipeline.Stage

type batchMsg struct {
	done  int
	total int
}

type doneMsg struct {
	res pipeline.Result
	err error
}

type model struct {
	spinner    spinner.Model
	progress   progress.Model
	events     chan tea.Msg
	stage      pipeline.Stage
	batchDone  int
	batchTotal int
	res        pipeline.Result
	err        error
	finished   bool
	username   string
}

func initialModel(username string, events chan tea.Msg) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		events:   events,
		username: username,
	}
}

func waitEvent(events chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

// trySend drops the event when the channel is full. Nothing drains the
// channel once the user quits, so the pipeline goroutine must never block
// on a send.
func trySend(events chan tea.Msg, msg tea.Msg) {
	select {
	case events <- msg:
	default:
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitEvent(m.events))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stageMsg:
		m.stage = pipeline.Stage(msg)
		return m, waitEvent(m.events)

	case batchMsg:
		m.batchDone = msg.done
		m.batchTotal = msg.total
		return m, waitEvent(m.events)

	case doneMsg:
		m.res = msg.res
		m.err = msg.err
		m.finished = true
		return m, nil
	}

	return m, nil
}

func (m model) View() string {
	header := headerStyle.Render(fmt.Sprintf("boardgraph • %s", m.username))

	var body strings.Builder
	if m.finished {
		if m.err != nil {
			body.WriteString(errorStyle.Render(fmt.Sprintf("Failed: %v", m.err)))
		} else {
			body.WriteString(okStyle.Render(fmt.Sprintf("Exported %d nodes, %d edges", m.res.NodeCount, m.res.EdgeCount)))
			if n := len(m.res.Skipped); n > 0 {
				body.WriteString(subtleStyle.Render(fmt.Sprintf("\nSkipped %d games:", n)))
				for _, s := range m.res.Skipped {
					body.WriteString(subtleStyle.Render(fmt.Sprintf("\n  %s: %s", s.ID, s.Reason)))
				}
			}
		}
	} else {
		stage := string(m.stage)
		if stage == "" {
			stage = "starting"
		}
		body.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), stage))
		if m.stage == pipeline.StageDetails && m.batchTotal > 0 {
			percent := float64(m.batchDone) / float64(m.batchTotal)
			body.WriteString(fmt.Sprintf("\n%s %d/%d batches", m.progress.ViewAs(percent), m.batchDone, m.batchTotal))
		}
	}

	footer := subtleStyle.Render("\nPress q to quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, paneStyle.Render(body.String()), footer)
}

func main() {
	username := flag.String("username", os.Getenv("BOARDGRAPH_USERNAME"), "BGG username (required)")
	threshold := flag.Float64("threshold", 0.35, "minimum similarity for an edge, in [0,1]")
	outDir := flag.String("out", "data", "output directory")
	flag.Parse()

	if strings.TrimSpace(*username) == "" {
		fmt.Println("Usage: boardgraph-tui -username NAME [-threshold 0.35] [-out data]")
		os.Exit(1)
	}

	// The pipeline logs progress lines; keep them off the alt screen.
	log.SetOutput(io.Discard)

	events := make(chan tea.Msg, 16)

	client := bgg.New(bgg.Config{
		OnBatch: func(done, total int) {
			trySend(events, batchMsg{done: done, total: total})
		},
	})

	exporter, err := export.New(*outDir)
	if err != nil {
		fmt.Printf("boardgraph-tui: %v\n", err)
		os.Exit(1)
	}

	go func() {
		res, err := pipeline.Run(context.Background(), pipeline.Deps{
			Collection: client,
			Details:    client,
			Sink:       exporter,
		}, pipeline.Options{
			Username:  *username,
			Threshold: *threshold,
			OnStage: func(s pipeline.Stage) {
				trySend(events, stageMsg(s))
			},
		})
		trySend(events, doneMsg{res: res, err: err})
	}()

	p := tea.NewProgram(initialModel(*username, events), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
