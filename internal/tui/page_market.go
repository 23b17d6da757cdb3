package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stardeck/stardeck/internal/logger"
	"github.com/stardeck/stardeck/internal/model"
)

const allCategories = "All"

// marketPage lists commodity prices with category and name filters and a bar
// chart of average sell prices.
type marketPage struct {
	materials *dataView[[]model.MaterialMarket]
	keys      KeyMap
	modalCtx  ModalContext

	search    textinput.Model
	searching bool
	category  string
	list      listCursor
}

func newMarketPage(backend model.EconomyReader, interval time.Duration, keys KeyMap, mctx ModalContext, log logger.Logger) *marketPage {
	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "material name"
	search.CharLimit = 64

	return &marketPage{
		materials: newDataView("market", "/market/materials", interval, log, backend.MarketMaterials),
		keys:      keys,
		modalCtx:  mctx,
		search:    search,
		category:  allCategories,
	}
}

func (p *marketPage) ID() string         { return pageMarket }
func (p *marketPage) Title() string      { return "Market" }
func (p *marketPage) RequiresAuth() bool { return true }
func (p *marketPage) Capturing() bool    { return p.searching }

func (p *marketPage) Mount() tea.Cmd { return p.materials.mount() }

func (p *marketPage) Unmount() {
	p.searching = false
	p.search.Blur()
	p.materials.unmount()
}

func (p *marketPage) Refresh() tea.Cmd       { return p.materials.refresh() }
func (p *marketPage) SetPaused(paused bool)  { p.materials.setPaused(paused) }
func (p *marketPage) Statuses() []viewStatus { return []viewStatus{p.materials.status()} }
func (p *marketPage) Loading() bool          { return p.materials.loading() }

// filtered applies the category and search filters, sorted by name.
func (p *marketPage) filtered() []model.MaterialMarket {
	snap := p.materials.snapshot()
	if !snap.HasValue {
		return nil
	}
	return filterMaterials(snap.Value, p.category, p.search.Value())
}

func filterMaterials(all []model.MaterialMarket, category, query string) []model.MaterialMarket {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]model.MaterialMarket, 0, len(all))
	for _, m := range all {
		if category != allCategories && m.Category != category {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(m.Name), query) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// categories returns "All" followed by the distinct categories, sorted.
func categories(all []model.MaterialMarket) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range all {
		if m.Category == "" {
			continue
		}
		if _, ok := seen[m.Category]; !ok {
			seen[m.Category] = struct{}{}
			out = append(out, m.Category)
		}
	}
	sort.Strings(out)
	return append([]string{allCategories}, out...)
}

func nextCategory(cats []string, current string) string {
	for i, c := range cats {
		if c == current {
			return cats[(i+1)%len(cats)]
		}
	}
	return allCategories
}

func (p *marketPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	if cmd, ok := p.materials.handle(msg); ok {
		return cmd, nil
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, nil
	}

	if p.searching {
		switch k.String() {
		case "enter":
			p.searching = false
			p.search.Blur()
			return nil, nil
		case "esc":
			p.searching = false
			p.search.SetValue("")
			p.search.Blur()
			return nil, nil
		}
		var cmd tea.Cmd
		p.search, cmd = p.search.Update(msg)
		p.list = listCursor{}
		return cmd, nil
	}

	rows := p.filtered()
	switch {
	case key.Matches(k, p.keys.Search):
		p.searching = true
		return p.search.Focus(), nil
	case key.Matches(k, p.keys.Escape):
		p.search.SetValue("")
		p.category = allCategories
		p.list = listCursor{}
	case key.Matches(k, p.keys.Category):
		snap := p.materials.snapshot()
		p.category = nextCategory(categories(snap.Value), p.category)
		p.list = listCursor{}
	case key.Matches(k, p.keys.Enter):
		if len(rows) > 0 {
			p.list.clamp(len(rows))
			m := rows[p.list.cursor]
			return pushModal(newTextModal("material-"+m.Name, m.Name, materialDetail(m), p.keys, p.modalCtx)), nil
		}
	default:
		p.list.handleKey(p.keys, k, len(rows))
	}
	return nil, nil
}

func (p *marketPage) View(width, height int) string {
	filterLine := helpStyle.Render(fmt.Sprintf("Category: %s  •  c: cycle  /: search", p.category))
	if p.searching || p.search.Value() != "" {
		filterLine = lipgloss.JoinHorizontal(lipgloss.Top, p.search.View(), "   ", filterLine)
	}

	innerW := width - 4
	chartHeight := 0
	if height >= 24 {
		chartHeight = 10
	}
	tableHeight := max(height-chartHeight-4, 3)

	rows := p.filtered()
	body := renderResource(p.materials.snapshot(), innerW, tableHeight, resourceContent[[]model.MaterialMarket]{
		empty:     func(all []model.MaterialMarket) bool { return len(all) == 0 },
		emptyText: "No materials listed",
		body: func([]model.MaterialMarket) string {
			if len(rows) == 0 {
				return helpStyle.Render("No materials match the current filters")
			}
			table := p.renderTable(rows, innerW, tableHeight-2)
			if chartHeight == 0 {
				return table
			}
			return lipgloss.JoinVertical(lipgloss.Left, table, renderPriceChart(rows, innerW, chartHeight))
		},
	})

	return sectionStyle.Width(width - 2).Height(height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, chartTitleStyle.Render("Market"), filterLine, body))
}

func (p *marketPage) renderTable(rows []model.MaterialMarket, width, height int) string {
	nameW := max(min(width-60, 28), 12)
	header := headerRowStyle.Render(fmt.Sprintf("%-*s %-12s %10s %10s %10s %10s", nameW, "Material", "Category", "Avg buy", "Avg sell", "Min buy", "Max sell"))
	lines := []string{header}

	start, end := p.list.window(len(rows), max(height-1, 1))
	for i := start; i < end; i++ {
		m := rows[i]
		line := fmt.Sprintf("%-*s %-12s %10s %10s %10s %10s",
			nameW, truncate(m.Name, nameW), truncate(m.Category, 12),
			formatPrice(m.AvgBuyPrice), formatPrice(m.AvgSellPrice),
			formatPrice(m.MinBuyPrice), formatPrice(m.MaxSellPrice))
		if i == p.list.cursor {
			line = selectedRowStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// renderPriceChart draws the highest average sell prices as vertical bars
// with a numbered legend.
func renderPriceChart(rows []model.MaterialMarket, width, height int) string {
	priced := make([]model.MaterialMarket, 0, len(rows))
	for _, m := range rows {
		if m.AvgSellPrice != nil && *m.AvgSellPrice > 0 {
			priced = append(priced, m)
		}
	}
	if len(priced) == 0 {
		return helpStyle.Render("No sell prices to chart")
	}
	sort.SliceStable(priced, func(i, j int) bool { return *priced[i].AvgSellPrice > *priced[j].AvgSellPrice })

	legendWidth := 26
	chartWidth := max(width-legendWidth-2, 20)
	maxBars := min(chartWidth/3, height, len(priced))
	priced = priced[:maxBars]

	bc := barchart.New(chartWidth, height,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(2),
		barchart.WithNoAxis(),
	)
	barStyle := lipgloss.NewStyle().Foreground(ColorBlue).Background(ColorBlue)
	for _, m := range priced {
		bc.Push(barchart.BarData{
			Label:  "",
			Values: []barchart.BarValue{{Name: m.Name, Value: *m.AvgSellPrice, Style: barStyle}},
		})
	}
	bc.Draw()

	legend := make([]string, 0, len(priced)+1)
	legend = append(legend, chartTitleStyle.Render("Avg sell (aUEC)"))
	for i, m := range priced {
		legend = append(legend, fmt.Sprintf("%2d %-12s %8s", i+1, truncate(m.Name, 12), formatLargeNumber(*m.AvgSellPrice)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, bc.View(), "  ", strings.Join(legend, "\n"))
}

func materialDetail(m model.MaterialMarket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category:   %s\n", m.Category)
	if m.Unit != "" {
		fmt.Fprintf(&b, "Unit:       %s\n", m.Unit)
	}
	var kinds []string
	if m.IsMineable {
		kinds = append(kinds, "mineable")
	}
	if m.IsSalvage {
		kinds = append(kinds, "salvage")
	}
	if m.IsTradeGood {
		kinds = append(kinds, "trade good")
	}
	if len(kinds) > 0 {
		fmt.Fprintf(&b, "Kind:       %s\n", strings.Join(kinds, ", "))
	}
	fmt.Fprintf(&b, "\nAvg buy:    %s\n", formatPrice(m.AvgBuyPrice))
	fmt.Fprintf(&b, "Avg sell:   %s\n", formatPrice(m.AvgSellPrice))
	fmt.Fprintf(&b, "Min buy:    %s\n", formatPrice(m.MinBuyPrice))
	fmt.Fprintf(&b, "Max sell:   %s\n", formatPrice(m.MaxSellPrice))
	if m.MinBuyPrice != nil && m.MaxSellPrice != nil && *m.MinBuyPrice > 0 {
		margin := (*m.MaxSellPrice - *m.MinBuyPrice) / *m.MinBuyPrice * 100
		fmt.Fprintf(&b, "Margin:     %+.1f%%\n", margin)
	}
	fmt.Fprintf(&b, "\nBest buy:   %s\n", locationName(m.BestBuyLocation))
	fmt.Fprintf(&b, "Best sell:  %s\n", locationName(m.BestSellLocation))
	fmt.Fprintf(&b, "Listed at:  %d locations\n", m.AvailableAt)
	return b.String()
}

func locationName(l *model.LocationInfo) string {
	if l == nil {
		return "-"
	}
	if l.FullPath != "" {
		return l.FullPath
	}
	parts := []string{l.Name}
	if l.Planet != "" {
		parts = append(parts, l.Planet)
	}
	if l.System != "" {
		parts = append(parts, l.System)
	}
	return strings.Join(parts, ", ")
}
