package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Harshitk-cp/expertd/internal/domain"
	"github.com/Harshitk-cp/expertd/internal/service"
	"github.com/Harshitk-cp/expertd/internal/store"
	"go.uber.org/zap"
)

const instructions = `You need to answer with an integer from -5 to 5
 5 - totally agree,
-5 - totally disagree,
 0 - I don't know
`

var errNoKnowledgeBases = errors.New("no kdb*.json knowledge base found")

type console struct {
	kbs      *service.KnowledgeBaseService
	sessions *service.SessionService
	in       *bufio.Scanner
	out      io.Writer
	logger   *zap.Logger
}

func newConsole(dir string, in io.Reader, out io.Writer, logger *zap.Logger) *console {
	kbStore := store.NewFileKnowledgeBaseStore(dir)
	return &console{
		kbs:      service.NewKnowledgeBaseService(kbStore, logger),
		sessions: service.NewSessionService(store.NewMemorySessionStore(), kbStore, logger),
		in:       bufio.NewScanner(in),
		out:      out,
		logger:   logger,
	}
}

func (c *console) run(ctx context.Context) error {
	name, err := c.chooseKnowledgeBase(ctx)
	if err != nil {
		return err
	}

	sess, err := c.sessions.Start(ctx, name)
	if err != nil {
		return fmt.Errorf("start consultation on %q: %w", name, err)
	}
	fmt.Fprint(c.out, instructions, "\n")

	for !sess.Finished() {
		r, err := c.ask(sess.Pending.Text, domain.MinResponse, domain.MaxResponse)
		if err != nil {
			return err
		}
		sess, err = c.sessions.Answer(ctx, sess.ID, sess.Pending.EvidenceID, r)
		if err != nil {
			return err
		}
		c.printBeliefs(sess.Beliefs)
	}

	c.printWinners(sess)
	return nil
}

// chooseKnowledgeBase uses the only knowledge base directly and offers a
// numbered menu when there are several.
func (c *console) chooseKnowledgeBase(ctx context.Context) (string, error) {
	list, err := c.kbs.List(ctx)
	if err != nil {
		return "", err
	}
	switch len(list) {
	case 0:
		return "", errNoKnowledgeBases
	case 1:
		return list[0].Name, nil
	}

	for i, kb := range list {
		fmt.Fprintf(c.out, "%d - %s\n", i+1, kb.Name)
	}
	n, err := c.ask("Please choose the knowledge DB", 1, len(list))
	if err != nil {
		return "", err
	}
	return list[n-1].Name, nil
}

// ask prompts until the reply is an integer in [lo, hi].
func (c *console) ask(prompt string, lo, hi int) (int, error) {
	for {
		fmt.Fprintf(c.out, "%s: ", prompt)
		if !c.in.Scan() {
			if err := c.in.Err(); err != nil {
				return 0, err
			}
			return 0, io.ErrUnexpectedEOF
		}
		n, err := strconv.Atoi(strings.TrimSpace(c.in.Text()))
		if err == nil && n >= lo && n <= hi {
			return n, nil
		}
		c.logger.Debug("rejected reply", zap.String("reply", c.in.Text()))
	}
}

func (c *console) printBeliefs(beliefs []domain.Belief) {
	for _, b := range beliefs {
		fmt.Fprintf(c.out, "%s : %.2f\n", b.Hypothesis, b.Probability)
	}
}

func (c *console) printWinners(sess *domain.Session) {
	probability := make(map[string]float64, len(sess.Beliefs))
	for _, b := range sess.Beliefs {
		probability[b.Hypothesis] = b.Probability
	}

	if sess.Status == domain.SessionExhausted {
		fmt.Fprintln(c.out, "\nNo questions left; the result is a best guess.")
	}
	fmt.Fprintln(c.out, "\nWinners:")
	for _, name := range sess.Winners {
		fmt.Fprintf(c.out, "%s %.2f\n", name, probability[name])
	}
}
