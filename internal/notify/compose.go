package notify

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/matchday/platform/internal/domain"
)

// Digest is everything sent to one user for one day. Kickoff times are shown in Location,
// UTC when unset.
type Digest struct {
	User     domain.User
	Matches  []DigestMatch
	Location *time.Location
}

// DigestMatch is one of today's matches as seen by one user. Tokens are indexed
// in the order of domain.Outcomes.
type DigestMatch struct {
	FixtureID int64
	HomeTeam  string
	AwayTeam  string
	Kickoff   time.Time
	Odds      *domain.Odds
	Tokens    [3]string
	Bet       *domain.Outcome
}

// TokenFor returns the user's token for one outcome of the match.
func (m *DigestMatch) TokenFor(o domain.Outcome) string {
	for i, out := range domain.Outcomes {
		if out == o {
			return m.Tokens[i]
		}
	}
	return ""
}

// tokenBytes gives 32 url-safe characters once encoded.
const tokenBytes = 24

// NewToken returns an unguessable url-safe token.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// BetURL is the one-click link redeeming token.
func BetURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/bet/" + token
}

type outcomeLink struct {
	Label  string
	Odd    string
	URL    string
	Picked bool
}

type matchLine struct {
	Kickoff string
	Home    string
	Away    string
	Links   []outcomeLink
}

func lines(d *Digest, baseURL string) []matchLine {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	out := make([]matchLine, 0, len(d.Matches))
	for i := range d.Matches {
		m := &d.Matches[i]
		line := matchLine{
			Kickoff: m.Kickoff.In(loc).Format("15:04 MST"),
			Home:    m.HomeTeam,
			Away:    m.AwayTeam,
		}
		for j, o := range domain.Outcomes {
			odd := "-"
			if m.Odds != nil {
				odd = m.Odds.For(o).StringFixed(2)
			}
			line.Links = append(line.Links, outcomeLink{
				Label:  o.Short(),
				Odd:    odd,
				URL:    BetURL(baseURL, m.Tokens[j]),
				Picked: m.Bet != nil && *m.Bet == o,
			})
		}
		out = append(out, line)
	}
	return out
}

var emailTemplate = template.Must(template.New("digest").Parse(`<html><body>
<p>Hi {{.Name}},</p>
<p>Here are today's matches. Click an odd to place or change your bet; your current pick is in brackets.</p>
<table cellpadding="6">
{{- range .Lines}}
<tr><td>{{.Kickoff}}</td><td><b>{{.Home}}</b> - <b>{{.Away}}</b></td>
{{- range .Links}}
<td>{{if .Picked}}[{{end}}<a href="{{.URL}}">{{.Label}} @ {{.Odd}}</a>{{if .Picked}}]{{end}}</td>
{{- end}}</tr>
{{- end}}
</table>
</body></html>`))

// EmailHTML renders the digest as an HTML email body.
func EmailHTML(d *Digest, baseURL string) (string, error) {
	name := d.User.Name
	if name == "" {
		name = d.User.Username
	}
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, struct {
		Name  string
		Lines []matchLine
	}{name, lines(d, baseURL)})
	if err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

// ChatText renders the digest in the HTML subset accepted by the chat bot.
func ChatText(d *Digest, baseURL string) string {
	var b strings.Builder
	b.WriteString("<b>Today's matches</b>\n")
	for _, l := range lines(d, baseURL) {
		fmt.Fprintf(&b, "\n%s <b>%s - %s</b>\n", l.Kickoff, html.EscapeString(l.Home), html.EscapeString(l.Away))
		parts := make([]string, len(l.Links))
		for i, link := range l.Links {
			a := fmt.Sprintf(`<a href="%s">%s @ %s</a>`, html.EscapeString(link.URL), link.Label, link.Odd)
			if link.Picked {
				a = "[" + a + "]"
			}
			parts[i] = a
		}
		b.WriteString(strings.Join(parts, " | "))
		b.WriteString("\n")
	}
	return b.String()
}

func emailSubject(d *Digest) string {
	if len(d.Matches) == 1 {
		return "1 match today: place your bet"
	}
	return fmt.Sprintf("%d matches today: place your bets", len(d.Matches))
}
