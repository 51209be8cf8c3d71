package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Adda-Baaj/khobor-reader/internal/domain"
	"github.com/Adda-Baaj/khobor-reader/internal/favorites"
	"github.com/Adda-Baaj/khobor-reader/internal/feed"
)

const (
	noTitle       = "No title"
	noDescription = "No description"
	prompt        = "> "
)

var errQuit = errors.New("quit")

const shellHelp = `commands:
  fetch <url|source-id>   load a feed, replacing the list
  list                    show the current list
  favorites               show favorites
  fav <n>                 toggle favorite for item n
  unfav <n>               remove favorite n (numbered as in favorites)
  rm <n> [n...]           remove items from the list
  show <n>                show every field of item n
  open <n>                preview the page item n links to
  sources                 list configured sources
  help                    this text
  quit                    leave
`

// Shell is a line-oriented front end over a Session. Items are addressed by
// their 1-based position in the last printed list.
type Shell struct {
	session *Session
	in      io.Reader
	out     io.Writer
}

// NewShell binds a shell to session and the given streams.
func NewShell(session *Session, in io.Reader, out io.Writer) *Shell {
	return &Shell{session: session, in: in, out: out}
}

// Run reads commands until quit, EOF or ctx is done.
func (sh *Shell) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(sh.in)
	fmt.Fprint(sh.out, "type 'help' for commands\n"+prompt)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			if err := sh.exec(ctx, line); errors.Is(err, errQuit) {
				return nil
			}
		}
		fmt.Fprint(sh.out, prompt)
	}
	return scanner.Err()
}

func (sh *Shell) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "fetch":
		if len(args) != 1 {
			fmt.Fprintln(sh.out, "usage: fetch <url|source-id>")
			return nil
		}
		sh.fetch(ctx, args[0])
	case "list", "ls":
		items, err := sh.session.Store().Items()
		if sh.report(err) {
			return nil
		}
		if len(items) == 0 {
			fmt.Fprintln(sh.out, "no items; use fetch")
			return nil
		}
		PrintItems(sh.out, items)
	case "favorites", "favs":
		favs, err := sh.session.Store().Favorites()
		if sh.report(err) {
			return nil
		}
		if len(favs) == 0 {
			fmt.Fprintln(sh.out, "no favorites yet")
			return nil
		}
		PrintItems(sh.out, favs)
	case "fav":
		sh.toggle(args)
	case "unfav":
		sh.unfavorite(args)
	case "rm":
		sh.remove(args)
	case "show":
		item, ok := sh.item(args)
		if ok {
			PrintItem(sh.out, item)
		}
	case "open":
		sh.open(ctx, args)
	case "sources":
		sh.listSources()
	case "help", "?":
		fmt.Fprint(sh.out, shellHelp)
	case "quit", "exit", "q":
		return errQuit
	default:
		fmt.Fprintf(sh.out, "unknown command %q; type 'help'\n", cmd)
	}
	return nil
}

func (sh *Shell) fetch(ctx context.Context, target string) {
	var res FetchResult
	select {
	case res = <-sh.session.Fetch(ctx, target):
	case <-ctx.Done():
		return
	}

	switch {
	case res.Err != nil:
		fmt.Fprintf(sh.out, "Could not load the feed (%s): %v\n", feed.ErrorKindOf(res.Err), res.Err)
	case !res.Applied:
		fmt.Fprintln(sh.out, "a newer fetch replaced this result")
	default:
		fmt.Fprintf(sh.out, "loaded %d items from %s\n", len(res.Items), res.URL)
		PrintItems(sh.out, res.Items)
	}
}

func (sh *Shell) toggle(args []string) {
	item, ok := sh.item(args)
	if !ok {
		return
	}
	favorited, err := sh.session.Store().ToggleFavorite(item)
	if sh.report(err) {
		return
	}
	if favorited {
		fmt.Fprintf(sh.out, "added to favorites: %s\n", item.TitleOr(noTitle))
	} else {
		fmt.Fprintf(sh.out, "removed from favorites: %s\n", item.TitleOr(noTitle))
	}
}

func (sh *Shell) unfavorite(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(sh.out, "usage: unfav <n>")
		return
	}
	idx, err := parsePosition(args[0])
	if err != nil {
		fmt.Fprintln(sh.out, err)
		return
	}
	fav, err := sh.session.Store().Favorite(idx)
	if sh.report(err) {
		return
	}
	if _, err := sh.session.Store().ToggleFavorite(fav); sh.report(err) {
		return
	}
	fmt.Fprintf(sh.out, "removed from favorites: %s\n", fav.TitleOr(noTitle))
}

func (sh *Shell) remove(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(sh.out, "usage: rm <n> [n...]")
		return
	}
	indices := make([]int, 0, len(args))
	for _, a := range args {
		idx, err := parsePosition(a)
		if err != nil {
			fmt.Fprintln(sh.out, err)
			return
		}
		indices = append(indices, idx)
	}
	if sh.report(sh.session.Store().RemoveItems(indices)) {
		return
	}
	fmt.Fprintf(sh.out, "removed %d item(s)\n", len(dedupe(indices)))
}

func (sh *Shell) open(ctx context.Context, args []string) {
	item, ok := sh.item(args)
	if !ok {
		return
	}
	p, err := sh.session.Preview(ctx, item)
	if err != nil {
		fmt.Fprintf(sh.out, "Could not open the link: %v\n", err)
		if p.URL == "" {
			return
		}
	}

	w := tabwriter.NewWriter(sh.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "url\t%s\n", p.URL)
	fmt.Fprintf(w, "title\t%s\n", orDefault(p.Title, noTitle))
	fmt.Fprintf(w, "description\t%s\n", orDefault(p.Description, noDescription))
	if p.ImageURL != "" {
		fmt.Fprintf(w, "image\t%s\n", p.ImageURL)
	}
	w.Flush()
}

func (sh *Shell) listSources() {
	srcs := sh.session.Sources()
	if len(srcs) == 0 {
		fmt.Fprintln(sh.out, "no sources configured")
		return
	}
	w := tabwriter.NewWriter(sh.out, 0, 0, 2, ' ', 0)
	for _, src := range srcs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", src.ID, src.Name, src.URL)
	}
	w.Flush()
}

// item resolves a single 1-based position argument against the working list.
func (sh *Shell) item(args []string) (domain.FeedItem, bool) {
	if len(args) != 1 {
		fmt.Fprintln(sh.out, "expected one item number")
		return domain.FeedItem{}, false
	}
	idx, err := parsePosition(args[0])
	if err != nil {
		fmt.Fprintln(sh.out, err)
		return domain.FeedItem{}, false
	}
	item, err := sh.session.Store().Item(idx)
	if sh.report(err) {
		return domain.FeedItem{}, false
	}
	return item, true
}

func (sh *Shell) report(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, favorites.ErrIndexOutOfRange):
		fmt.Fprintln(sh.out, "no such item; use list")
	default:
		fmt.Fprintf(sh.out, "error: %v\n", err)
	}
	return true
}

// PrintItems writes a numbered list of items. Favorites are marked with '*'.
func PrintItems(w io.Writer, items []domain.FeedItem) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, it := range items {
		mark := " "
		if it.IsFavorite {
			mark = "*"
		}
		fmt.Fprintf(tw, "%3d %s\t%s\t%s\n", i+1, mark, it.TitleOr(noTitle), formatDate(it.PublicationDate))
	}
	tw.Flush()
}

// PrintItem writes every field of item.
func PrintItem(w io.Writer, item domain.FeedItem) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "title\t%s\n", item.TitleOr(noTitle))
	fmt.Fprintf(tw, "description\t%s\n", item.DescriptionOr(noDescription))
	fmt.Fprintf(tw, "link\t%s\n", item.LinkOr("-"))
	fmt.Fprintf(tw, "published\t%s\n", formatDate(item.PublicationDate))
	thumb := "-"
	if item.ThumbnailURL != nil {
		thumb = *item.ThumbnailURL
	}
	fmt.Fprintf(tw, "thumbnail\t%s\n", thumb)
	fmt.Fprintf(tw, "guid\t%s\n", item.GUID)
	fmt.Fprintf(tw, "favorite\t%t\n", item.IsFavorite)
	tw.Flush()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// parsePosition converts a 1-based position into a 0-based index.
func parsePosition(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid item number %q", raw)
	}
	return n - 1, nil
}

func dedupe(indices []int) map[int]struct{} {
	out := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		out[i] = struct{}{}
	}
	return out
}
