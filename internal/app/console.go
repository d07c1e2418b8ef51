package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"stage-tracker/internal/aggregate"
	"stage-tracker/internal/domain"
	"stage-tracker/internal/edit"
)

const consoleHelp = `commands:
  <n> | select <n|key>        start tracking stage n
  status                      show the active stage and total time
  finish [reference]          finish the session and save it
  stages                      list stages
  rename <n> <code> <name>    rename stage n
  resize <count>              set the number of stages (1-20)
  logs                        list logged sessions
  search <text>               find sessions by date, token or reference
  show <token>                show a logged session
  edit <token>                edit the start and end times of a session
  clear                       delete every logged session
  help | quit`

// Console is a line-oriented front end over an App.
type Console struct {
	app *App
	in  *bufio.Scanner
	out io.Writer
}

func NewConsole(a *App, in io.Reader, out io.Writer) *Console {
	return &Console{app: a, in: bufio.NewScanner(in), out: out}
}

// Run reads commands until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	c.println(titleStyle.Render("Stage tracker"))
	c.println(RenderStages(c.app.Stages()))
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, ok := c.prompt("> ")
		if !ok {
			return c.in.Err()
		}
		quit, err := c.exec(ctx, line)
		if err != nil {
			c.println("error: " + err.Error())
		}
		if quit {
			return nil
		}
	}
}

func (c *Console) exec(ctx context.Context, line string) (quit bool, err error) {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	if n, convErr := strconv.Atoi(cmd); convErr == nil {
		return false, c.selectStage(strconv.Itoa(n))
	}

	switch cmd {
	case "":
		return false, nil
	case "help", "?":
		c.println(consoleHelp)
	case "quit", "exit":
		if st := c.app.Status(); st.Active != nil || st.Intervals > 0 {
			c.println("unfinished session discarded")
		}
		return true, nil
	case "select":
		return false, c.selectStage(rest)
	case "status":
		c.println(RenderStatus(c.app.Status()))
	case "finish":
		return false, c.finish(ctx, rest)
	case "stages":
		c.print(RenderStages(c.app.Stages()))
	case "rename":
		return false, c.rename(ctx, rest)
	case "resize":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return false, fmt.Errorf("resize needs a number: %w", err)
		}
		stages, err := c.app.ResizeStages(ctx, n)
		if err != nil {
			return false, err
		}
		c.print(RenderStages(stages))
	case "logs":
		listing, err := c.app.Logs(ctx)
		if err != nil {
			return false, err
		}
		if listing.Recovered {
			c.println(idleStyle.Render("the session log was unreadable and has been reset"))
		}
		c.print(RenderSessions(listing.Sessions))
	case "search":
		found, err := c.app.SearchLogs(ctx, rest)
		if err != nil {
			return false, err
		}
		c.print(RenderSessions(found))
	case "show":
		sum, err := c.app.LogDetail(ctx, rest)
		if err != nil {
			return false, err
		}
		c.println(RenderSummary(sum))
		c.print(RenderIntervals(sum.Intervals))
	case "edit":
		return false, c.edit(ctx, rest)
	case "clear":
		return false, c.clear(ctx)
	default:
		return false, fmt.Errorf("unknown command %q, try help", cmd)
	}
	return false, nil
}

func (c *Console) selectStage(arg string) error {
	var (
		s   domain.Stage
		err error
	)
	if n, convErr := strconv.Atoi(arg); convErr == nil {
		s, err = c.app.SelectOrdinal(n)
	} else {
		s, err = c.app.SelectStage(arg)
	}
	if err != nil {
		return err
	}
	c.println(activeStyle.Render("● " + s.Name))
	return nil
}

func (c *Console) finish(ctx context.Context, reference string) error {
	if reference == "" {
		var ok bool
		reference, ok = c.prompt(fmt.Sprintf("reference (blank for %s): ", c.app.cfg.DefaultReference))
		if !ok {
			return io.ErrUnexpectedEOF
		}
	}
	sum, err := c.app.Finish(ctx, reference)
	if err != nil {
		return fmt.Errorf("%w (session kept, finish again to retry)", err)
	}
	c.println(RenderSummary(sum))
	return nil
}

func (c *Console) rename(ctx context.Context, args string) error {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return errors.New("usage: rename <n> <code> <name>")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return fmt.Errorf("stage number: %w", err)
	}
	var key string
	for _, s := range c.app.Stages() {
		if s.Ordinal == n {
			key = s.Key
		}
	}
	if key == "" {
		return fmt.Errorf("%w: #%d", domain.ErrUnknownStage, n)
	}
	s, err := c.app.RenameStage(ctx, key, strings.Join(fields[2:], " "), fields[1])
	if err != nil {
		return err
	}
	c.println(fmt.Sprintf("stage %d is now %s (%s)", s.Ordinal, s.Name, s.Code))
	return nil
}

// edit walks the rows of a session. Enter keeps a row, "-" clears it and
// anything else is read as "START END".
func (c *Console) edit(ctx context.Context, token string) error {
	s, err := c.app.BeginEdit(ctx, token)
	if err != nil {
		return err
	}
	c.print(RenderIntervals(s.Intervals))

	rows := make([]edit.Row, len(s.Intervals))
	for i, iv := range s.Intervals {
		line, ok := c.prompt(fmt.Sprintf("row %d [%s %s]: ", i+1, iv.Start, iv.End))
		if !ok {
			return io.ErrUnexpectedEOF
		}
		rows[i] = parseRow(line, iv)
		secs := iv.ElapsedSec
		if !rows[i].Keep {
			secs = c.app.Preview(rows[i])
		}
		c.println(mutedStyle.Render("  = " + aggregate.FormatDuration(secs)))
	}

	answer, ok := c.prompt("save changes? (yes/no): ")
	if !ok || strings.TrimSpace(answer) != "yes" {
		c.println("edit discarded")
		return nil
	}
	saved, err := c.app.SaveEdit(ctx, s, rows)
	if err != nil {
		return err
	}
	c.print(RenderIntervals(saved))
	return nil
}

func parseRow(line string, current domain.Interval) edit.Row {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return edit.Row{Start: current.Start, End: current.End, Keep: true}
	case "-":
		return edit.Row{}
	}
	start, end, _ := strings.Cut(line, " ")
	return edit.Row{Start: start, End: strings.TrimSpace(end)}
}

func (c *Console) clear(ctx context.Context) error {
	answer, ok := c.prompt("type yes to delete every logged session: ")
	if !ok || strings.TrimSpace(answer) != "yes" {
		c.println("nothing deleted")
		return nil
	}
	if err := c.app.ClearLogs(ctx); err != nil {
		return err
	}
	c.println("session log cleared")
	return nil
}

func (c *Console) prompt(p string) (string, bool) {
	fmt.Fprint(c.out, p)
	if !c.in.Scan() {
		return "", false
	}
	return c.in.Text(), true
}

func (c *Console) print(s string)   { fmt.Fprint(c.out, s) }
func (c *Console) println(s string) { fmt.Fprintln(c.out, s) }
