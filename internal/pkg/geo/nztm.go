package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// NZTM2000 (EPSG:2193) transverse mercator parameters on GRS80.
const (
	nztmA          = 6378137.0
	nztmRF         = 298.257222101
	nztmCM         = 173.0
	nztmScale      = 0.9996
	nztmFalseEast  = 1600000.0
	nztmFalseNorth = 10000000.0
)

var (
	nztmF  = 1 / nztmRF
	nztmE2 = 2*nztmF - nztmF*nztmF
)

func meridianArc(lat float64) float64 {
	e2 := nztmE2
	e4 := e2 * e2
	e6 := e4 * e2

	a0 := 1 - e2/4 - 3*e4/64 - 5*e6/256
	a2 := 3.0 / 8.0 * (e2 + e4/4 + 15*e6/128)
	a4 := 15.0 / 256.0 * (e4 + 3*e6/4)
	a6 := 35 * e6 / 3072

	return nztmA * (a0*lat - a2*math.Sin(2*lat) + a4*math.Sin(4*lat) - a6*math.Sin(6*lat))
}

// ToNZTM projects a WGS84 longitude/latitude in degrees to NZTM2000 easting/northing.
func ToNZTM(lon, lat float64) (easting, northing float64) {
	rad := math.Pi / 180
	phi := lat * rad
	dlon := (lon - nztmCM) * rad
	if dlon > math.Pi {
		dlon -= 2 * math.Pi
	}
	if dlon < -math.Pi {
		dlon += 2 * math.Pi
	}

	m := meridianArc(phi)
	slt := math.Sin(phi)
	clt := math.Cos(phi)
	denom := 1 - nztmE2*slt*slt
	eta := nztmA / math.Sqrt(denom)
	rho := eta * (1 - nztmE2) / denom
	psi := eta / rho

	wc := clt * dlon
	wc2 := wc * wc
	t := slt / clt
	t2 := t * t
	t4 := t2 * t2
	t6 := t4 * t2

	trm1 := (psi - t2) / 6
	trm2 := (((4*(1-6*t2)*psi+(1+8*t2))*psi-2*t2)*psi + t4) / 120
	trm3 := (61 - 479*t2 + 179*t4 - t6) / 5040
	gce := (nztmScale * eta * dlon * clt) * (((trm3*wc2+trm2)*wc2+trm1)*wc2 + 1)
	easting = gce + nztmFalseEast

	trm1 = 1.0 / 2.0
	trm2 = ((4*psi+1)*psi - t2) / 24
	trm3 = ((((8*(11-24*t2)*psi-28*(1-6*t2))*psi+(1-32*t2))*psi-2*t2)*psi + t4) / 720
	trm4 := (1385 - 3111*t2 + 543*t4 - t6) / 40320
	gcn := (eta * t) * ((((trm4*wc2+trm3)*wc2+trm2)*wc2 + trm1) * wc2)
	northing = (gcn+m)*nztmScale + nztmFalseNorth

	return easting, northing
}

// BoundToNZTM projects every corner of a WGS84 bound and returns the
// enclosing NZTM bound.
func BoundToNZTM(b orb.Bound) orb.Bound {
	corners := []orb.Point{
		{b.Min[0], b.Min[1]},
		{b.Min[0], b.Max[1]},
		{b.Max[0], b.Min[1]},
		{b.Max[0], b.Max[1]},
	}
	var out orb.Bound
	for i, c := range corners {
		e, n := ToNZTM(c[0], c[1])
		p := orb.Point{e, n}
		if i == 0 {
			out = p.Bound()
			continue
		}
		out = out.Extend(p)
	}
	return out
}
