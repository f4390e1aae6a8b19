package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"gitea.kood.tech/saathi/matchmaking/client/api"
	"gitea.kood.tech/saathi/matchmaking/client/coordinator"
)

var (
	colorAccent  = lipgloss.Color("#C2185B")
	colorMuted   = lipgloss.Color("#757575")
	colorSuccess = lipgloss.Color("#2E7D32")
	colorWarning = lipgloss.Color("#F9A825")
	colorError   = lipgloss.Color("#C62828")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	labelStyle   = lipgloss.NewStyle().Foreground(colorMuted).Width(14)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
)

var cardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorAccent).
	Padding(0, 1)

// commandFor is the matchctl invocation for an offered action.
var commandFor = map[coordinator.Action]string{
	coordinator.ActionExpress: "send",
	coordinator.ActionRemove:  "remove",
	coordinator.ActionAccept:  "accept",
	coordinator.ActionReject:  "reject",
	coordinator.ActionResend:  "resend",
}

func (c *cli) println(a ...interface{}) {
	fmt.Fprintln(c.out, a...)
}

// printNotice writes n and turns a failed notice into errReported.
func (c *cli) printNotice(n coordinator.Notice) error {
	switch n.Level {
	case coordinator.LevelSuccess:
		c.println(successStyle.Render("✓ " + n.Message))
		return nil
	case coordinator.LevelInfo:
		c.println(warningStyle.Render("○ " + n.Message))
		return errReported
	}
	c.println(errorStyle.Render("✗ " + n.Message))
	if n.RedirectLogin {
		c.println(mutedStyle.Render("  run `matchctl login` and try again"))
	}
	return errReported
}

// age in whole years on now, or -1 when dob is missing or malformed.
func age(dob string, now time.Time) int {
	d, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return -1
	}
	years := now.Year() - d.Year()
	if now.Month() < d.Month() || (now.Month() == d.Month() && now.Day() < d.Day()) {
		years--
	}
	return years
}

func ageText(dob string, now time.Time) string {
	if a := age(dob, now); a >= 0 {
		return strconv.Itoa(a)
	}
	return "-"
}

func locationText(l api.Location) string {
	parts := make([]string, 0, 4)
	for _, s := range []string{l.Village, l.Tehsil, l.District, l.State} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func profileTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		String()
}

func (c *cli) profileCard(p *api.Profile) string {
	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}
	b.WriteString(titleStyle.Render(p.DisplayName))
	if p.IsVerified {
		b.WriteString(successStyle.Render(" ✓ verified"))
	}
	b.WriteString("\n")
	line("Age", ageText(p.DateOfBirth, c.now()))
	line("Gender", orDash(p.Gender))
	line("Marital", orDash(strings.ReplaceAll(p.MaritalStatus, "_", " ")))
	if p.ChildrenCount > 0 {
		kids := make([]string, 0, len(p.Children))
		for _, ch := range p.Children {
			kids = append(kids, fmt.Sprintf("%s %d", ch.Gender, ch.Age))
		}
		line("Children", fmt.Sprintf("%d (%s)", p.ChildrenCount, strings.Join(kids, ", ")))
	}
	line("Education", orDash(strings.ReplaceAll(p.Education, "_", " ")))
	line("Profession", orDash(p.Profession))
	line("Caste", orDash(p.Caste))
	line("Religion", orDash(p.Religion))
	line("Location", orDash(locationText(p.Location)))
	line("Photo", api.ResolveImageURL(c.client.BaseURL(), p.ProfilePhoto))
	if p.About != "" {
		line("About", p.About)
	}
	if p.Interests != "" {
		line("Interests", p.Interests)
	}
	if p.Guardian != nil {
		line("Guardian", fmt.Sprintf("%s (%s)", orDash(p.Guardian.Name), orDash(p.Guardian.Contact)))
	} else {
		line("Guardian", mutedStyle.Render("shown once an interest is accepted"))
	}
	return cardStyle.Render(strings.TrimRight(b.String(), "\n"))
}
