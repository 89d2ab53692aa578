package web

import (
	"fmt"
	"html/template"
	"math"
	"strings"
	"time"
)

const (
	chartWidth  = 640
	chartHeight = 240
	chartPadX   = 48
	chartPadY   = 28
)

type bar struct {
	Label string
	Value float64
}

type linePoint struct {
	At    time.Time
	Value float64
}

// barChart renders labelled vertical bars as inline SVG.
func barChart(title string, bars []bar) template.HTML {
	var b strings.Builder
	openSVG(&b, title)
	maxV := 0.0
	for _, d := range bars {
		maxV = math.Max(maxV, d.Value)
	}
	if maxV == 0 {
		maxV = 1
	}
	plotW := float64(chartWidth - 2*chartPadX)
	plotH := float64(chartHeight - 2*chartPadY)
	axes(&b, 0, maxV)
	if n := len(bars); n > 0 {
		slot := plotW / float64(n)
		barW := math.Max(slot*0.6, 2)
		for i, d := range bars {
			h := d.Value / maxV * plotH
			x := float64(chartPadX) + slot*float64(i) + (slot-barW)/2
			y := float64(chartHeight-chartPadY) - h
			fmt.Fprintf(&b, `<rect class="bar" x="%.1f" y="%.1f" width="%.1f" height="%.1f"><title>%s: %s</title></rect>`,
				x, y, barW, h, esc(d.Label), trimFloat(d.Value))
			fmt.Fprintf(&b, `<text x="%.1f" y="%d" text-anchor="middle" font-size="11">%s</text>`,
				x+barW/2, chartHeight-chartPadY+14, esc(d.Label))
		}
	}
	b.WriteString("</svg>")
	return template.HTML(b.String())
}

// lineChart renders a time series as inline SVG with points placed by time.
func lineChart(title, unit string, points []linePoint) template.HTML {
	var b strings.Builder
	openSVG(&b, title)
	if len(points) == 0 {
		b.WriteString("</svg>")
		return template.HTML(b.String())
	}
	lo, hi := points[0].Value, points[0].Value
	first, last := points[0].At, points[0].At
	for _, p := range points[1:] {
		lo, hi = math.Min(lo, p.Value), math.Max(hi, p.Value)
		if p.At.Before(first) {
			first = p.At
		}
		if p.At.After(last) {
			last = p.At
		}
	}
	if hi-lo < 1 {
		lo, hi = lo-1, hi+1
	}
	axes(&b, lo, hi)
	plotW := float64(chartWidth - 2*chartPadX)
	plotH := float64(chartHeight - 2*chartPadY)
	span := last.Sub(first).Seconds()
	coords := make([]string, 0, len(points))
	for _, p := range points {
		x := float64(chartPadX) + plotW/2
		if span > 0 {
			x = float64(chartPadX) + p.At.Sub(first).Seconds()/span*plotW
		}
		y := float64(chartHeight-chartPadY) - (p.Value-lo)/(hi-lo)*plotH
		coords = append(coords, fmt.Sprintf("%.1f,%.1f", x, y))
		fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="3"><title>%s %s%s</title></circle>`,
			x, y, p.At.UTC().Format("2006-01-02 15:04"), trimFloat(p.Value), esc(unit))
	}
	fmt.Fprintf(&b, `<polyline class="line" fill="none" points="%s"/>`, strings.Join(coords, " "))
	fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="11">%s</text>`, chartPadX, chartHeight-6, first.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="11" text-anchor="end">%s</text>`, chartWidth-chartPadX, chartHeight-6, last.UTC().Format("2006-01-02"))
	b.WriteString("</svg>")
	return template.HTML(b.String())
}

func openSVG(b *strings.Builder, title string) {
	fmt.Fprintf(b, `<svg class="chart" xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-label="%s">`,
		chartWidth, chartHeight, esc(title))
	fmt.Fprintf(b, `<text x="%d" y="16" font-size="13" font-weight="bold">%s</text>`, chartPadX, esc(title))
}

func axes(b *strings.Builder, lo, hi float64) {
	bottom := chartHeight - chartPadY
	fmt.Fprintf(b, `<line class="axis" x1="%d" y1="%d" x2="%d" y2="%d"/>`, chartPadX, chartPadY, chartPadX, bottom)
	fmt.Fprintf(b, `<line class="axis" x1="%d" y1="%d" x2="%d" y2="%d"/>`, chartPadX, bottom, chartWidth-chartPadX, bottom)
	fmt.Fprintf(b, `<text x="%d" y="%d" font-size="11" text-anchor="end">%s</text>`, chartPadX-4, bottom, trimFloat(lo))
	fmt.Fprintf(b, `<text x="%d" y="%d" font-size="11" text-anchor="end">%s</text>`, chartPadX-4, chartPadY+4, trimFloat(hi))
}

func trimFloat(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func esc(s string) string { return template.HTMLEscapeString(s) }
