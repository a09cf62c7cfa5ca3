package sync

import (
	"context"
	"encoding/base64"

	"github.com/tknatwork/tokensync/internal/host"
	"github.com/tknatwork/tokensync/internal/token"
)

// importStyles runs after both variable passes so bound-variable fields
// wire against the complete store. Styles are matched by name within their
// kind; a binding whose target is missing is skipped silently (counted,
// never fatal).
func (imp *importer) importStyles(ctx context.Context, bundle *token.StyleBundle) {
	for _, s := range bundle.ColorStyles {
		live := &host.Style{
			Kind:        token.StyleColor,
			Name:        s.Name,
			Description: s.Description,
			Color:       imp.prepareColorStyle(ctx, s),
			BoundVars:   imp.decodeBindings(s.Name, s.BoundVariables),
		}
		imp.saveStyle(ctx, live)
	}
	for _, s := range bundle.TextStyles {
		live := &host.Style{
			Kind:        token.StyleText,
			Name:        s.Name,
			Description: s.Description,
			Text:        stripTextWire(s),
			BoundVars:   imp.decodeBindings(s.Name, s.BoundVariables),
		}
		imp.checkFont(ctx, s)
		imp.saveStyle(ctx, live)
	}
	for _, s := range bundle.EffectStyles {
		out := *s
		out.BoundVariables = nil
		live := &host.Style{
			Kind:        token.StyleEffect,
			Name:        s.Name,
			Description: s.Description,
			Effect:      &out,
			BoundVars:   imp.decodeBindings(s.Name, s.BoundVariables),
		}
		imp.saveStyle(ctx, live)
	}
	for _, s := range bundle.GridStyles {
		out := *s
		out.BoundVariables = nil
		live := &host.Style{
			Kind:        token.StyleGrid,
			Name:        s.Name,
			Description: s.Description,
			Grid:        &out,
			BoundVars:   imp.decodeBindings(s.Name, s.BoundVariables),
		}
		imp.saveStyle(ctx, live)
	}
}

// prepareColorStyle materializes embedded image data into the host's image
// store so the live paint carries only the opaque hash.
func (imp *importer) prepareColorStyle(ctx context.Context, s *token.ColorStyle) *token.ColorStyle {
	out := *s
	out.BoundVariables = nil
	paints := make([]token.Paint, len(s.Paints))
	copy(paints, s.Paints)
	for i := range paints {
		if paints[i].Kind != token.PaintImage || paints[i].ImageData == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(paints[i].ImageData)
		if err != nil {
			imp.itemError("style %q: invalid embedded image: %v", s.Name, err)
			paints[i].ImageData = ""
			continue
		}
		hash, err := imp.h.StoreImage(ctx, data)
		if err != nil {
			imp.itemError("style %q: failed to store image: %v", s.Name, err)
			paints[i].ImageData = ""
			continue
		}
		paints[i].ImageHash = hash
		paints[i].ImageData = ""
	}
	out.Paints = paints
	return &out
}

func stripTextWire(s *token.TextStyle) *token.TextStyle {
	out := *s
	out.BoundVariables = nil
	return &out
}

func (imp *importer) checkFont(ctx context.Context, s *token.TextStyle) {
	if s.FontFamily == "" {
		return
	}
	ok, err := imp.h.HasFont(ctx, s.FontFamily, s.FontStyle)
	if err != nil {
		imp.itemError("style %q: font check failed: %v", s.Name, err)
		return
	}
	if !ok {
		imp.logger.Printf("WARNING: style %q needs font %s %s which is not available",
			s.Name, s.FontFamily, s.FontStyle)
	}
}

// decodeBindings turns wire collection+path references into identity
// bindings against the rebuilt entity index.
func (imp *importer) decodeBindings(styleName string, refs map[string]token.VariableRef) map[string]string {
	if len(refs) == 0 {
		return nil
	}
	out := make(map[string]string, len(refs))
	for field, ref := range refs {
		v, ok := imp.es.Variable(ref.Collection, ref.Path)
		if !ok {
			imp.logger.Printf("style %q: binding %q target %s/%s not found, skipping",
				styleName, field, ref.Collection, ref.Path)
			imp.stats.BindingsSkipped++
			continue
		}
		out[field] = v.ID
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// saveStyle creates or updates by name within the style's kind.
func (imp *importer) saveStyle(ctx context.Context, s *host.Style) {
	existing, err := imp.h.Styles(ctx, s.Kind)
	if err != nil {
		imp.itemError("failed to enumerate %s styles: %v", s.Kind, err)
		return
	}
	for _, e := range existing {
		if e.Name == s.Name {
			s.ID = e.ID
			break
		}
	}
	created := s.ID == ""
	if _, err := imp.h.SaveStyle(ctx, s); err != nil {
		imp.itemError("failed to save style %q: %v", s.Name, err)
		return
	}
	if created {
		imp.stats.StylesCreated++
	} else {
		imp.stats.StylesUpdated++
	}
}
