package hips

import "fmt"

// TileLocator names one HiPS tile. The zero value means "no such tile".
type TileLocator struct {
	Survey  string
	BaseURL string
	Format  string
	Address PixelAddress
}

func (l TileLocator) Valid() bool { return l.Survey != "" && l.Address.Valid() }

// Dir is the HiPS directory bucket: the index rounded down to a multiple of 10000.
func (l TileLocator) Dir() int64 { return (l.Address.Index / 10000) * 10000 }

// RelPath is "Norder{o}/Dir{d}/Npix{i}.{ext}", the part shared by every mirror and cache.
func (l TileLocator) RelPath() string {
	if !l.Valid() {
		return ""
	}
	return fmt.Sprintf("Norder%d/Dir%d/Npix%d.%s", l.Address.Order, l.Dir(), l.Address.Index, l.Format)
}

// URL is "{base}/Norder{o}/Dir{d}/Npix{i}.{ext}". Caches key on this string, so it must
// not change shape.
func (l TileLocator) URL() string {
	if !l.Valid() {
		return ""
	}
	return l.BaseURL + "/" + l.RelPath()
}

func (l TileLocator) String() string {
	if !l.Valid() {
		return "<no tile>"
	}
	return l.Survey + ":" + l.RelPath()
}

// Locate names the tile for addr in the named survey. It does no I/O. An unknown survey
// or invalid address gives the zero TileLocator.
func (r *Registry) Locate(survey string, addr PixelAddress) TileLocator {
	s, ok := r.Get(survey)
	if !ok || !addr.Valid() {
		return TileLocator{}
	}
	return TileLocator{
		Survey:  s.Name,
		BaseURL: s.BaseURL,
		Format:  s.Format,
		Address: addr,
	}
}
