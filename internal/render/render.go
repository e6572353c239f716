// Package render prints plans as aligned text tables for terminals.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/alex-user-go/tripplan/internal/planner/types"
)

// maxCell is the display width a cell is truncated to.
const maxCell = 32

// Table is a set of rows under a header row.
type Table struct {
	Header []string
	Rows   [][]string
}

// Write renders t as a pipe-delimited table. Column widths are measured in
// terminal cells so wide runes stay aligned.
func (t Table) Write(w io.Writer) error {
	cols := len(t.Header)
	for _, row := range t.Rows {
		cols = max(cols, len(row))
	}

	widths := make([]int, cols)
	for i := range widths {
		widths[i] = 3
	}
	measure := func(row []string) {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(clip(cell)))
		}
	}
	measure(t.Header)
	for _, row := range t.Rows {
		measure(row)
	}

	var sb strings.Builder
	line := func(row []string) {
		sb.WriteString("|")
		for i := range cols {
			cell := ""
			if i < len(row) {
				cell = clip(row[i])
			}
			sb.WriteString(" ")
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	line(t.Header)
	sb.WriteString("|")
	for _, width := range widths {
		sb.WriteString(" " + strings.Repeat("-", width) + " |")
	}
	sb.WriteString("\n")
	for _, row := range t.Rows {
		line(row)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func clip(s string) string {
	return runewidth.Truncate(s, maxCell, "…")
}

// Plan writes a human readable summary of plan.
func Plan(w io.Writer, plan *types.Plan) error {
	p := &printer{w: w}
	b := plan.Bundle

	p.printf("Trip %s -> %s\n", b.Origin, b.Destination)
	if b.DepartureDate != "" || b.ReturnDate != "" {
		p.printf("Dates: %s to %s\n", orDash(b.DepartureDate), orDash(b.ReturnDate))
	}
	p.printf("Party: %d, rooms: %d", b.PartySize, b.Rooms)
	if b.Budget != nil {
		p.printf(", budget: %s", strconv.FormatFloat(*b.Budget, 'f', 2, 64))
	}
	p.printf("\n")

	if b.Weather != nil {
		wx := b.Weather
		p.printf("\nWeather in %s: %s, %.1f°C, humidity %.0f%%, wind %.1f\n",
			wx.Location, orDash(wx.Condition), wx.TemperatureC, wx.HumidityPct, wx.WindSpeed)
	}

	p.printf("\nFlights (%d)\n", len(b.Flights))
	if len(b.Flights) > 0 {
		p.table(Flights(b.Flights))
	}

	p.printf("\nLodging (%d)\n", len(b.Lodgings))
	if len(b.Lodgings) > 0 {
		p.table(Lodgings(b.Lodgings))
	}

	if plan.Best != nil {
		best := plan.Best
		p.printf("\nBest value: %s + %s, %d nights, total %s, score %.3f\n",
			best.Flight.Carrier, best.Lodging.Name, best.Nights,
			Money(best.TotalCost, best.Flight.Currency), best.ValueScore)
	}
	if len(plan.Ranked) > 1 {
		p.printf("\nTop combinations\n")
		p.table(Ranked(plan.Ranked))
	}

	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		p.printf("\n%s\n", title)
		for _, l := range lines {
			p.printf("  - %s\n", l)
		}
	}
	section("Recommendations", b.Recommendations)
	section("Warnings", plan.Warnings)

	return p.err
}

// Flights tabulates flight offers.
func Flights(flights []types.FlightOffer) Table {
	t := Table{Header: []string{"Carrier", "Price", "Stops", "Duration", "Departs", "Arrives", "Source"}}
	for _, f := range flights {
		t.Rows = append(t.Rows, []string{
			f.Carrier,
			Money(f.Price, f.Currency),
			strconv.Itoa(f.StopCount),
			Duration(f.DurationMinutes),
			orDash(f.DepartureTime),
			orDash(f.ArrivalTime),
			orDash(f.Source),
		})
	}
	return t
}

// Lodgings tabulates lodging offers.
func Lodgings(lodgings []types.LodgingOffer) Table {
	t := Table{Header: []string{"Name", "Per night", "Rating", "Location", "Amenities"}}
	for _, l := range lodgings {
		t.Rows = append(t.Rows, []string{
			l.Name,
			Money(l.PricePerNight, l.Currency),
			strconv.FormatFloat(l.Rating, 'f', 1, 64),
			orDash(l.Location),
			orDash(strings.Join(l.Amenities, ", ")),
		})
	}
	return t
}

// Ranked tabulates scored pairings.
func Ranked(ranked []types.ScoredCombination) Table {
	t := Table{Header: []string{"#", "Flight", "Lodging", "Nights", "Total", "Score"}}
	for i, c := range ranked {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(i + 1),
			c.Flight.Carrier,
			c.Lodging.Name,
			strconv.Itoa(c.Nights),
			Money(c.TotalCost, c.Flight.Currency),
			strconv.FormatFloat(c.ValueScore, 'f', 3, 64),
		})
	}
	return t
}

// Money formats an amount, or "n/a" when the price is unknown.
func Money(a types.Amount, currency string) string {
	if !a.Known() {
		return "n/a"
	}
	s := strconv.FormatFloat(float64(a), 'f', 2, 64)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// Duration formats minutes as "8h 15m".
func Duration(minutes int) string {
	if minutes <= 0 {
		return "-"
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) table(t Table) {
	if p.err != nil {
		return
	}
	p.err = t.Write(p.w)
}
