// Package reporting builds human-readable activity reports from the event
// log and the position registry, rendered as Markdown or CSV.
package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/holiman/uint256"

	"aw-token-ledger/internal/amm"
	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	events    storage.EventStore
	positions storage.PositionStore
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator.
func NewGenerator(events storage.EventStore, positions storage.PositionStore) *Generator {
	return &Generator{
		events:    events,
		positions: positions,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete activity report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	events, err := g.events.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	positions, err := g.positions.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt:     g.now(),
		Summary:         g.generateSummary(events, positions),
		EventCounts:     g.generateEventCounts(events),
		AccountActivity: g.generateAccountActivity(events, positions),
		OpenPositions:   g.generateOpenPositions(positions),
	}
	return report, nil
}

// generateSummary computes log-wide totals.
func (g *Generator) generateSummary(events []*domain.Event, positions []*domain.Position) Summary {
	s := Summary{
		EventsLogged:  len(events),
		TotalMinted:   uint256.NewInt(0),
		OpenPositions: len(positions),
		OpenLiquidity: uint256.NewInt(0),
	}

	for _, e := range events {
		switch e.Kind {
		case domain.EventMint:
			if e.AmountToken != nil {
				s.TotalMinted.Add(s.TotalMinted, e.AmountToken)
			}
		case domain.EventPoolCreated:
			s.Pool = e.Pool.String()
			if e.SqrtPriceX96 != nil {
				s.PoolPrice = amm.PriceFromSqrtX96(e.SqrtPriceX96).String()
			}
		}
	}
	if len(events) > 0 {
		s.FirstEventAt = events[0].Timestamp
		s.LastEventAt = events[len(events)-1].Timestamp
	}
	for _, p := range positions {
		if p.Liquidity != nil {
			s.OpenLiquidity.Add(s.OpenLiquidity, p.Liquidity)
		}
	}
	return s
}

// generateEventCounts counts events per kind and builds sorted rows.
func (g *Generator) generateEventCounts(events []*domain.Event) []EventCountRow {
	counts := make(map[string]int)
	for _, e := range events {
		counts[string(e.Kind)]++
	}

	rows := make([]EventCountRow, 0, len(counts))
	for kind, count := range counts {
		rows = append(rows, EventCountRow{Kind: kind, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Kind < rows[j].Kind
	})
	return rows
}

// generateAccountActivity aggregates liquidity operations per account.
func (g *Generator) generateAccountActivity(events []*domain.Event, positions []*domain.Position) []AccountActivityRow {
	byAccount := make(map[string]*AccountActivityRow)
	row := func(account string) *AccountActivityRow {
		r := byAccount[account]
		if r == nil {
			r = &AccountActivityRow{
				Account:        account,
				TokenDeposited: uint256.NewInt(0),
				BaseDeposited:  uint256.NewInt(0),
				TokenWithdrawn: uint256.NewInt(0),
				BaseWithdrawn:  uint256.NewInt(0),
				OpenLiquidity:  uint256.NewInt(0),
			}
			byAccount[account] = r
		}
		return r
	}

	for _, e := range events {
		switch e.Kind {
		case domain.EventAddLiquidity:
			r := row(e.Account.String())
			r.Adds++
			addAmount(r.TokenDeposited, e.AmountToken)
			addAmount(r.BaseDeposited, e.AmountBase)
		case domain.EventRemoveLiquidity:
			r := row(e.Account.String())
			r.Removes++
			addAmount(r.TokenWithdrawn, e.AmountToken)
			addAmount(r.BaseWithdrawn, e.AmountBase)
		}
	}

	for _, p := range positions {
		r := row(p.Owner.String())
		r.OpenPositions++
		addAmount(r.OpenLiquidity, p.Liquidity)
	}

	rows := make([]AccountActivityRow, 0, len(byAccount))
	for _, r := range byAccount {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Account < rows[j].Account
	})
	return rows
}

// generateOpenPositions builds sorted open position rows.
func (g *Generator) generateOpenPositions(positions []*domain.Position) []OpenPositionRow {
	rows := make([]OpenPositionRow, len(positions))
	for i, p := range positions {
		rows[i] = OpenPositionRow{
			ID:        p.ID,
			Owner:     p.Owner.String(),
			Liquidity: p.Liquidity,
			TickLower: p.TickLower,
			TickUpper: p.TickUpper,
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ID < rows[j].ID
	})
	return rows
}

func addAmount(dst, v *uint256.Int) {
	if v != nil {
		dst.Add(dst, v)
	}
}
