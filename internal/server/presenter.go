package server

import (
	"github.com/terraplay/geoquiz/internal/geoquiz"
)

// BrokerPresenter fans the sequencer's presentation calls out to SSE
// subscribers as directives. Rendered rounds are redacted by phase; anything
// the redaction hides is delivered explicitly by later directives.
type BrokerPresenter struct {
	broker *Broker
}

func NewBrokerPresenter(b *Broker) *BrokerPresenter {
	return &BrokerPresenter{broker: b}
}

func (p *BrokerPresenter) Render(phase geoquiz.Phase, round *geoquiz.Round) {
	p.broker.Publish(Directive{
		Type:  "render",
		Phase: phase,
		Round: roundView(phase, round, false, false),
	})
}

func (p *BrokerPresenter) Highlight(regionID, style string) {
	p.broker.Publish(Directive{Type: "highlight", RegionID: regionID, Style: style})
}

func (p *BrokerPresenter) PlaceMarker(c geoquiz.Coordinates) {
	p.broker.Publish(Directive{Type: "marker", Coords: &c})
}

func (p *BrokerPresenter) FlyTo(c geoquiz.Coordinates, zoom int) {
	p.broker.Publish(Directive{Type: "flyTo", Coords: &c, Zoom: zoom})
}

func (p *BrokerPresenter) Notify(message, severity string) {
	p.broker.Publish(Directive{Type: "notify", Message: message, Severity: severity})
}
