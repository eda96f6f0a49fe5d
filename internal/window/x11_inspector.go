package window

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/scr2ppm/internal/geometry"
	"github.com/bryanchriswhite/scr2ppm/internal/logger"
)

// Info describes a window picked for capture
type Info struct {
	ID       uint32            `json:"id"`
	Title    string            `json:"title"`
	Class    string            `json:"class"`
	Geometry geometry.Geometry `json:"geometry"`
}

// X11Inspector looks up window attributes over an existing X11 connection
type X11Inspector struct {
	conn  *xgb.Conn
	atoms map[string]xproto.Atom
}

// NewX11Inspector creates an inspector sharing conn
func NewX11Inspector(conn *xgb.Conn) *X11Inspector {
	return &X11Inspector{
		conn:  conn,
		atoms: make(map[string]xproto.Atom),
	}
}

// Geometry returns the position and size of win as reported by the
// server. X and Y are relative to the parent, which for top-level
// windows is the root.
func (b *X11Inspector) Geometry(win uint32) (geometry.Geometry, error) {
	geom, err := xproto.GetGeometry(b.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return geometry.Geometry{}, fmt.Errorf("failed to get window geometry: %w", err)
	}
	return geometry.Geometry{
		X: int(geom.X),
		Y: int(geom.Y),
		W: int(geom.Width),
		H: int(geom.Height),
	}, nil
}

// Describe returns the geometry of win plus its title and class.
// Only the geometry lookup can fail; missing properties are left empty.
func (b *X11Inspector) Describe(win uint32) (*Info, error) {
	g, err := b.Geometry(win)
	if err != nil {
		return nil, err
	}

	info := &Info{
		ID:       win,
		Geometry: g,
	}

	w := xproto.Window(win)
	for _, name := range []string{"_NET_WM_NAME", "WM_NAME"} {
		if title, err := b.getProperty(w, name); err == nil && title != "" {
			info.Title = title
			break
		}
	}

	if classRaw, err := b.getProperty(w, "WM_CLASS"); err == nil {
		info.Class = ParseWMClass(classRaw)
	}

	logger.WithComponent("window").Debug().
		Uint32("window_id", win).
		Str("title", info.Title).
		Str("class", info.Class).
		Stringer("geometry", info.Geometry).
		Msg("Described window")

	return info, nil
}

// ParseWMClass extracts the class from a WM_CLASS value, which is
// "instance\0class\0". The instance is used when the class is empty.
func ParseWMClass(raw string) string {
	parts := strings.Split(raw, "\x00")
	if len(parts) >= 2 && parts[1] != "" {
		return parts[1]
	}
	if len(parts) >= 1 {
		return parts[0]
	}
	return ""
}

// getAtom gets an atom ID by name
func (b *X11Inspector) getAtom(name string) (xproto.Atom, error) {
	if atom, ok := b.atoms[name]; ok {
		return atom, nil
	}
	reply, err := xproto.InternAtom(b.conn, true, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	b.atoms[name] = reply.Atom
	return reply.Atom, nil
}

// getProperty gets a property value as a string
func (b *X11Inspector) getProperty(win xproto.Window, name string) (string, error) {
	atom, err := b.getAtom(name)
	if err != nil {
		return "", err
	}
	if atom == xproto.AtomNone {
		return "", fmt.Errorf("atom %s not interned", name)
	}

	reply, err := xproto.GetProperty(
		b.conn,
		false,
		win,
		atom,
		xproto.GetPropertyTypeAny,
		0,
		(1<<32)-1,
	).Reply()
	if err != nil {
		return "", err
	}

	if reply.ValueLen == 0 {
		return "", fmt.Errorf("empty property")
	}

	return string(reply.Value), nil
}
