package review

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jackzampolin/bindery/internal/archive"
	"github.com/jackzampolin/bindery/internal/ledger"
)

const consoleHelp = `commands:
  list              show all rows
  show N            show row N
  verify N|all      mark row N (or every row) reviewed
  unverify N        clear the review mark on row N
  next              show the first row still needing review
  text              print the transcript
  edit FILE         replace the transcript with the contents of FILE
  bind NAME         bind the page as NAME (e.g. Book/page-01)
  quit              leave without binding
`

// Console is a line-oriented front end for a Session.
type Console struct {
	Session *Session
	Writer  *archive.Writer
	In      io.Reader
	Out     io.Writer
	Prompt  string
}

// Run reads commands until quit, end of input or ctx cancellation. Command
// errors are printed and never end the loop.
func (c *Console) Run(ctx context.Context) error {
	prompt := c.Prompt
	if prompt == "" {
		prompt = "review> "
	}
	sc := bufio.NewScanner(c.In)
	c.list()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(c.Out, prompt)
		if !sc.Scan() {
			fmt.Fprintln(c.Out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		if cmd == "quit" || cmd == "exit" {
			return nil
		}
		if err := c.exec(ctx, cmd, arg); err != nil {
			fmt.Fprintf(c.Out, "error: %v\n", err)
		}
	}
}

func (c *Console) exec(ctx context.Context, cmd, arg string) error {
	s := c.Session
	switch cmd {
	case "help", "?":
		fmt.Fprint(c.Out, consoleHelp)
	case "list", "ls":
		c.list()
	case "show":
		i, err := c.row(arg)
		if err != nil {
			return err
		}
		c.show(i)
	case "verify", "v":
		if arg == "all" {
			s.Ledger.VerifyAll()
			fmt.Fprintf(c.Out, "%d/%d rows verified\n", s.Ledger.VerifiedCount(), s.Ledger.Len())
			return nil
		}
		i, err := c.row(arg)
		if err != nil {
			return err
		}
		if err := s.Ledger.Verify(i); err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "row %d verified (%d/%d)\n", i+1, s.Ledger.VerifiedCount(), s.Ledger.Len())
	case "unverify", "u":
		i, err := c.row(arg)
		if err != nil {
			return err
		}
		if err := s.Ledger.Unverify(i); err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "row %d unverified\n", i+1)
	case "next", "n":
		i, ok := s.Ledger.FirstUnverified()
		if !ok {
			fmt.Fprintln(c.Out, "all rows verified")
			return nil
		}
		c.show(i)
	case "text", "t":
		fmt.Fprint(c.Out, s.Transcript)
		if !strings.HasSuffix(s.Transcript, "\n") {
			fmt.Fprintln(c.Out)
		}
	case "edit", "e":
		if arg == "" {
			return errors.New("usage: edit FILE")
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			return err
		}
		s.Transcript = string(data)
		fmt.Fprintf(c.Out, "transcript replaced (%d bytes)\n", len(data))
	case "bind", "b":
		return c.bind(ctx, arg)
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func (c *Console) bind(ctx context.Context, base string) error {
	if base == "" {
		return errors.New("usage: bind NAME")
	}
	if c.Writer == nil {
		return errors.New("no archive configured")
	}
	if c.Writer.Exists(base) {
		fmt.Fprintf(c.Out, "overwriting existing page %s\n", base)
	}
	out, err := c.Session.Bind(ctx, c.Writer, base)
	if out != nil {
		if out.ImageErr == nil {
			fmt.Fprintf(c.Out, "image saved: %s\n", out.Page.ImagePath)
		}
		if out.TextErr == nil {
			fmt.Fprintf(c.Out, "text saved: %s\n", out.Page.TextPath)
		}
	}
	return err
}

// row parses a 1-based row number into a ledger index.
func (c *Console) row(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("row number expected, got %q", arg)
	}
	if n < 1 || n > c.Session.Ledger.Len() {
		return 0, &ledger.IndexError{Index: n - 1, Len: c.Session.Ledger.Len()}
	}
	return n - 1, nil
}

func (c *Console) list() {
	rows := c.Session.Rows()
	if len(rows) == 0 {
		fmt.Fprintln(c.Out, "no text detected")
		return
	}
	tw := tabwriter.NewWriter(c.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tSTATUS\tCONF\tTEXT")
	for _, r := range rows {
		conf := fmt.Sprintf("%.3f", r.Confidence)
		if r.LowConfidence {
			conf += "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Serial, r.Status, conf, r.Text)
	}
	tw.Flush()
}

func (c *Console) show(i int) {
	r := c.Session.Rows()[i]
	fmt.Fprintf(c.Out, "row %d [%s] confidence %.3f\n", r.Serial, r.Status, r.Confidence)
	fmt.Fprintf(c.Out, "  text: %s\n", r.Text)
	fmt.Fprintf(c.Out, "  quad: %v\n", r.Quad)
	if r.Crop != "" {
		fmt.Fprintf(c.Out, "  crop: %s\n", r.Crop)
	}
}
