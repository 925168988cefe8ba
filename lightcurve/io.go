package lightcurve

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteText serializes a raster to the on-disk text format: one row per
// sample, columns `t_seconds flux flag uncertainty`, times converted from
// the in-memory days representation to seconds at this boundary only.
// Metadata is not written here; the arena's archive backend owns the
// side-car `.metadata` file that carries it.
func WriteText(w io.Writer, raster *ArbitraryRaster) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < raster.Len(); i++ {
		tSeconds := raster.Times[i] * secondsPerDay
		if _, err := fmt.Fprintf(bw, "%.8f %.10e %.1f %.10e\n",
			tSeconds, raster.Fluxes[i], raster.Flags[i], raster.Uncertainties[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadText parses the on-disk text format back into a raster. The returned
// raster's Metadata is empty; callers merge in the side-car's metadata.
func ReadText(r io.Reader) (*ArbitraryRaster, error) {
	scanner := bufio.NewScanner(r)
	var times, fluxes, flags, uncertainties []float64
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("lightcurve: malformed data row %q", line)
		}
		tSeconds, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("lightcurve: parsing time column: %w", err)
		}
		flux, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("lightcurve: parsing flux column: %w", err)
		}
		flag, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("lightcurve: parsing flag column: %w", err)
		}
		uncertainty, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("lightcurve: parsing uncertainty column: %w", err)
		}
		times = append(times, tSeconds/secondsPerDay)
		fluxes = append(fluxes, flux)
		flags = append(flags, flag)
		uncertainties = append(uncertainties, uncertainty)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewArbitraryRaster(times, fluxes, uncertainties, flags, nil)
}

const binaryMagic uint32 = 0x706c7463 // "pltc"

// WriteBinary serializes a raster to a compact fixed-width binary format:
// a magic/count header followed by four float64 columns in row-major
// order, used when an archive handle's side-car declares binary=1.
func WriteBinary(w io.Writer, raster *ArbitraryRaster) error {
	if err := binary.Write(w, binary.LittleEndian, binaryMagic); err != nil {
		return err
	}
	n := uint64(raster.Len())
	if err := binary.Write(w, binary.LittleEndian, n); err != nil {
		return err
	}
	for i := 0; i < raster.Len(); i++ {
		row := [4]float64{
			raster.Times[i] * secondsPerDay,
			raster.Fluxes[i],
			raster.Flags[i],
			raster.Uncertainties[i],
		}
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return err
		}
	}
	return nil
}

// ReadBinary parses the format written by WriteBinary.
func ReadBinary(r io.Reader) (*ArbitraryRaster, error) {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("lightcurve: reading binary header: %w", err)
	}
	if magic != binaryMagic {
		return nil, fmt.Errorf("lightcurve: bad binary magic %x", magic)
	}
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("lightcurve: reading binary row count: %w", err)
	}
	times := make([]float64, n)
	fluxes := make([]float64, n)
	flags := make([]float64, n)
	uncertainties := make([]float64, n)
	for i := uint64(0); i < n; i++ {
		var row [4]float64
		if err := binary.Read(r, binary.LittleEndian, &row); err != nil {
			return nil, fmt.Errorf("lightcurve: reading binary row %d: %w", i, err)
		}
		times[i] = row[0] / secondsPerDay
		fluxes[i] = row[1]
		flags[i] = row[2]
		uncertainties[i] = row[3]
	}
	return NewArbitraryRaster(times, fluxes, uncertainties, flags, nil)
}
