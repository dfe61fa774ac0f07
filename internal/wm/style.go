package wm

import (
	"github.com/oxidewm/oxidewm/internal/config"
)

// Style is the part of the configuration that shapes frames.
type Style struct {
	BorderWidth    uint16
	BorderColor    uint32
	FocusColor     uint32
	Gap            uint16
	TitlebarHeight uint16

	// ReclaimEmptyWorkspaces deletes a workspace left empty when switching
	// away from it.
	ReclaimEmptyWorkspaces bool
}

// NewStyle extracts a Style from cfg.
func NewStyle(cfg *config.Config) (Style, error) {
	normal, err := config.ParseColor(cfg.BorderColor)
	if err != nil {
		return Style{}, err
	}
	focus, err := config.ParseColor(cfg.BorderFocusColor)
	if err != nil {
		return Style{}, err
	}
	return Style{
		BorderWidth:            cfg.BorderWidth,
		BorderColor:            normal,
		FocusColor:             focus,
		Gap:                    cfg.Gap,
		TitlebarHeight:         cfg.TitlebarHeight,
		ReclaimEmptyWorkspaces: cfg.ReclaimEmptyWorkspaces,
	}, nil
}
