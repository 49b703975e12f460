package cli

import (
	"context"
	"math/rand/v2"
	"net/http/httptest"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joebot/botchat/internal/devserver"
	"github.com/joebot/botchat/internal/picker"
)

// runStep executes the commands returned by the model and feeds the flow
// result back in.
func runStep(t *testing.T, m createModel, cmd tea.Cmd) createModel {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg := cmd()
	var cmds []tea.Cmd
	if batch, ok := msg.(tea.BatchMsg); ok {
		cmds = batch
	} else {
		cmds = []tea.Cmd{func() tea.Msg { return msg }}
	}
	for _, c := range cmds {
		if c == nil {
			continue
		}
		if done, ok := c().(flowDoneMsg); ok {
			next, _ := m.Update(done)
			return next.(createModel)
		}
	}
	t.Fatal("no flow result")
	return m
}

func newTestCreate(t *testing.T) (createModel, *devserver.Server) {
	t.Helper()
	s := devserver.New(devserver.Options{Rand: rand.New(rand.NewPCG(5, 5))})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	client, err := picker.NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	flow := picker.NewCreationFlow(client, rand.New(rand.NewPCG(1, 1)))
	return newCreateModel(context.Background(), flow), s
}

func TestCreateDialog(t *testing.T) {
	m, s := newTestCreate(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(createModel)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(createModel)
	if !m.busy {
		t.Fatal("loading step should mark the dialog busy")
	}
	m = runStep(t, m, cmd)
	if m.err != nil {
		t.Fatal(m.err)
	}
	if sex, ok := m.flow.Sex(); !ok || sex != picker.Female {
		t.Fatalf("sex = %v, %v", sex, ok)
	}

	before, _ := m.flow.Image()
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(createModel)
	after, _ := m.flow.Image()
	if before.ID == after.ID {
		t.Fatal("right arrow did not move the portrait selection")
	}

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(createModel)
	m = runStep(t, m, cmd)
	if !m.created {
		t.Fatalf("bot not created: %v", m.err)
	}

	bots := s.Bots()
	if len(bots) != 3 || bots[2].Image != after.URL {
		t.Fatalf("server roster = %+v", bots)
	}
}

func TestCreateDialogCancel(t *testing.T) {
	m, s := newTestCreate(t)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !next.(createModel).cancelled {
		t.Fatal("esc should cancel")
	}
	if len(s.Bots()) != 2 {
		t.Fatal("cancel created a bot")
	}
}

func TestCreateDialogIgnoresKeysWhileBusy(t *testing.T) {
	m, _ := newTestCreate(t)
	m.busy = true
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || !next.(createModel).busy {
		t.Fatal("keys should be ignored while a step runs")
	}
}
