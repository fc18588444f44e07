package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/ironsheep/sunmap/internal/colormap"
	"github.com/ironsheep/sunmap/internal/coords"
	"github.com/ironsheep/sunmap/internal/fitsfile"
	"github.com/ironsheep/sunmap/internal/render"
	"github.com/ironsheep/sunmap/internal/sunmap"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "map_load", "map_plot").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.Info("Tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler unmarshals its arguments, applies defaults, loads the
// map through the server's FITS cache and calls into the sunmap package.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "map_load":
		return s.handleMapLoad(args)

	// Rendering
	case "map_plot":
		return s.handleMapPlot(args)
	case "map_peek":
		return s.handleMapPeek(args)

	// Resampling
	case "map_superpixel":
		return s.handleMapSuperpixel(args)
	case "map_submap":
		return s.handleMapSubmap(args)

	// Coordinates
	case "map_pixel_to_world":
		return s.handleMapPixelToWorld(args)
	case "map_world_to_pixel":
		return s.handleMapWorldToPixel(args)

	case "map_contours":
		return s.handleMapContours(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (s *Server) loadMap(path string) (*sunmap.Map, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	return sunmap.LoadCached(s.cache, path, sunmap.WithLogger(s.log))
}

func (s *Server) newFigure() *render.Figure {
	opts := append([]render.Option{render.WithLogger(s.log)}, s.figOpts...)
	return render.NewFigure(opts...)
}

// angleIn expresses a in the map's natural display unit: arcseconds for
// helioprojective maps, degrees for heliographic ones.
func angleIn(m *sunmap.Map, a coords.Angle) float64 {
	if m.CoordinateFrame().Name == coords.Helioprojective {
		return a.Arcseconds()
	}
	return a.Degrees()
}

func unitOf(m *sunmap.Map) string {
	if m.CoordinateFrame().Name == coords.Helioprojective {
		return "arcsec"
	}
	return "deg"
}

// finite replaces NaN with nil so the value survives JSON encoding.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// === Map Information ===

type mapPathArgs struct {
	Path string `json:"path"`
}

// MapInfo describes a loaded map.
type MapInfo struct {
	Name           string         `json:"name"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	Frame          string         `json:"frame"`
	Unit           string         `json:"unit"`
	Date           string         `json:"date,omitempty"`
	Scale          [2]float64     `json:"scale"`
	ReferencePixel [2]float64     `json:"reference_pixel"`
	ReferenceWorld [2]float64     `json:"reference_coordinate"`
	Min            *float64       `json:"min"`
	Max            *float64       `json:"max"`
	Masked         bool           `json:"masked"`
	File           *fitsfile.Info `json:"file"`
}

func (s *Server) handleMapLoad(args json.RawMessage) (interface{}, error) {
	var a mapPathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	m, err := s.loadMap(a.Path)
	if err != nil {
		return nil, err
	}
	file, err := fitsfile.LoadInfo(s.cache, a.Path)
	if err != nil {
		return nil, err
	}
	return describeMap(m, file), nil
}

func describeMap(m *sunmap.Map, file *fitsfile.Info) *MapInfo {
	sx, sy := m.Scale()
	rx, ry := m.ReferencePixel()
	ref := m.ReferenceCoordinate()
	info := &MapInfo{
		Name:           m.Name(),
		Width:          m.Width(),
		Height:         m.Height(),
		Frame:          string(m.CoordinateFrame().Name),
		Unit:           unitOf(m),
		Scale:          [2]float64{angleIn(m, sx), angleIn(m, sy)},
		ReferencePixel: [2]float64{rx, ry},
		ReferenceWorld: [2]float64{angleIn(m, ref.Lon), angleIn(m, ref.Lat)},
		Min:            finite(m.Min()),
		Max:            finite(m.Max()),
		Masked:         m.HasMask(),
		File:           file,
	}
	if !m.Date().IsZero() {
		info.Date = m.Date().UTC().Format("2006-01-02T15:04:05.000")
	}
	return info
}

// === Rendering ===

// FigureResult is returned by the rendering tools.
type FigureResult struct {
	Name        string   `json:"name"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Hash        string   `json:"hash"`
	Warnings    []string `json:"warnings,omitempty"`
	Output      string   `json:"output,omitempty"`
	ImageBase64 string   `json:"image_base64,omitempty"`
}

func (s *Server) figureResult(m *sunmap.Map, fig *render.Figure, output string) (*FigureResult, error) {
	hash, err := fig.Hash()
	if err != nil {
		return nil, err
	}
	res := &FigureResult{Name: m.Name(), Hash: hash}
	for _, w := range fig.Warnings() {
		res.Warnings = append(res.Warnings, w.String())
		s.notify("warning", w.String())
	}
	b := fig.Render().Bounds()
	res.Width, res.Height = b.Dx(), b.Dy()

	if output != "" {
		if err := fig.SavePNG(output); err != nil {
			return nil, err
		}
		res.Output = output
		return res, nil
	}
	data, err := fig.PNG()
	if err != nil {
		return nil, err
	}
	res.ImageBase64 = base64.StdEncoding.EncodeToString(data)
	return res, nil
}

type mapPlotArgs struct {
	Path            string    `json:"path"`
	ClipInterval    []float64 `json:"clip_interval"`
	Colormap        string    `json:"colormap"`
	Grid            bool      `json:"grid"`
	GridSpacing     float64   `json:"grid_spacing"`
	Limb            bool      `json:"limb"`
	NonWCSAxes      bool      `json:"non_wcs_axes"`
	ContourPercents []float64 `json:"contour_percents"`
	Output          string    `json:"output"`
}

func (s *Server) handleMapPlot(args json.RawMessage) (interface{}, error) {
	var a mapPlotArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	m, err := s.loadMap(a.Path)
	if err != nil {
		return nil, err
	}

	fig := s.newFigure()
	var opts []sunmap.PlotOption
	if a.NonWCSAxes {
		opts = append(opts, sunmap.WithAxes(fig.Gca()))
	}
	if a.ClipInterval != nil {
		if len(a.ClipInterval) != 2 {
			return nil, fmt.Errorf("clip_interval needs two percentiles, got %d", len(a.ClipInterval))
		}
		opts = append(opts, sunmap.WithClipInterval(a.ClipInterval[0], a.ClipInterval[1]))
	}
	if a.Colormap != "" {
		cm, err := colormap.Get(a.Colormap)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sunmap.WithColormap(cm))
	}

	ax, err := m.Plot(fig, opts...)
	if err != nil {
		return nil, err
	}
	if a.Grid || a.GridSpacing > 0 {
		var gridOpts []sunmap.GridOption
		if a.GridSpacing > 0 {
			gridOpts = append(gridOpts, sunmap.GridSpacing(coords.Deg(a.GridSpacing), coords.Deg(a.GridSpacing)))
		}
		if err := m.DrawGrid(ax, gridOpts...); err != nil {
			return nil, err
		}
	}
	if a.Limb {
		if err := m.DrawLimb(ax); err != nil {
			return nil, err
		}
	}
	if len(a.ContourPercents) > 0 {
		if err := m.DrawContours(ax, sunmap.Percent(a.ContourPercents...)); err != nil {
			return nil, err
		}
	}
	return s.figureResult(m, fig, a.Output)
}

type mapPeekArgs struct {
	Path        string  `json:"path"`
	Grid        bool    `json:"grid"`
	GridSpacing float64 `json:"grid_spacing"`
	Limb        bool    `json:"limb"`
	Output      string  `json:"output"`
}

func (s *Server) handleMapPeek(args json.RawMessage) (interface{}, error) {
	var a mapPeekArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	m, err := s.loadMap(a.Path)
	if err != nil {
		return nil, err
	}

	figOpts := append([]render.Option{render.WithLogger(s.log)}, s.figOpts...)
	opts := []sunmap.PeekOption{sunmap.PeekFigure(figOpts...)}
	switch {
	case a.GridSpacing > 0:
		opts = append(opts, sunmap.PeekGridSpacing(coords.Deg(a.GridSpacing), coords.Deg(a.GridSpacing)))
	case a.Grid:
		opts = append(opts, sunmap.PeekGrid())
	}
	if a.Limb {
		opts = append(opts, sunmap.PeekLimb())
	}
	fig, err := m.Peek(opts...)
	if err != nil {
		return nil, err
	}
	return s.figureResult(m, fig, a.Output)
}

// === Resampling ===

// DerivedMap is returned by the tools that produce a new map.
type DerivedMap struct {
	*MapInfo
	Output string `json:"output,omitempty"`
}

func (s *Server) writeDerived(m *sunmap.Map, output string) (*DerivedMap, error) {
	res := &DerivedMap{MapInfo: describeMap(m, nil)}
	if output == "" {
		return res, nil
	}
	if err := fitsfile.Save(output, m.ToFile()); err != nil {
		return nil, err
	}
	s.cache.Evict(output)
	res.Output = output
	return res, nil
}

type mapSuperpixelArgs struct {
	Path    string `json:"path"`
	DimX    int    `json:"dim_x"`
	DimY    int    `json:"dim_y"`
	OffsetX int    `json:"offset_x"`
	OffsetY int    `json:"offset_y"`
	Reducer string `json:"reducer"`
	Output  string `json:"output"`
}

func (s *Server) handleMapSuperpixel(args json.RawMessage) (interface{}, error) {
	var a mapSuperpixelArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Reducer == "" {
		a.Reducer = "sum"
	}
	reduce, err := sunmap.ReducerByName(a.Reducer)
	if err != nil {
		return nil, err
	}
	m, err := s.loadMap(a.Path)
	if err != nil {
		return nil, err
	}
	sp, err := m.Superpixel(a.DimX, a.DimY, a.OffsetX, a.OffsetY, reduce)
	if err != nil {
		return nil, err
	}
	return s.writeDerived(sp, a.Output)
}

type mapSubmapArgs struct {
	Path   string `json:"path"`
	X1     int    `json:"x1"`
	Y1     int    `json:"y1"`
	X2     int    `json:"x2"`
	Y2     int    `json:"y2"`
	Output string `json:"output"`
}

func (s *Server) handleMapSubmap(args json.RawMessage) (interface{}, error) {
	var a mapSubmapArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	m, err := s.loadMap(a.Path)
	if err != nil {
		return nil, err
	}
	sub, err := m.SubmapPixels(a.X1, a.Y1, a.X2, a.Y2)
	if err != nil {
		return nil, err
	}
	return s.writeDerived(sub, a.Output)
}

// === Coordinates ===

// WorldPoint is a world coordinate in the map's display unit. Lon and Lat
// are nil when the pixel does not map to the sky.
type WorldPoint struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Lon   *float64 `json:"lon"`
	Lat   *float64 `json:"lat"`
	Error string   `json:"error,omitempty"`
}

type mapPixelToWorldArgs struct {
	Path   string `json:"path"`
	Points []struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"points"`
}

func (s *Server) handleMapPixelToWorld(args json.RawMessage) (interface{}, error) {
	var a mapPixelToWorldArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Points) == 0 {
		return nil, errors.New("at least one point is required")
	}
	m, err := s.loadMap(a.Path)
	if err != nil {
		return nil, err
	}

	out := make([]WorldPoint, len(a.Points))
	for i, p := range a.Points {
		out[i] = WorldPoint{X: p.X, Y: p.Y}
		c, err := m.PixelToWorld(p.X, p.Y)
		if err != nil {
			out[i].Error = err.Error()
			continue
		}
		out[i].Lon = finite(angleIn(m, c.Lon))
		out[i].Lat = finite(angleIn(m, c.Lat))
	}
	return map[string]interface{}{
		"frame":  string(m.CoordinateFrame().Name),
		"unit":   unitOf(m),
		"points": out,
	}, nil
}

// PixelPoint is the pixel position of a world coordinate. Visible is false
// for heliographic points on the far side of the Sun from the observer.
type PixelPoint struct {
	Lon     float64  `json:"lon"`
	Lat     float64  `json:"lat"`
	X       *float64 `json:"x"`
	Y       *float64 `json:"y"`
	InMap   bool     `json:"in_map"`
	Visible bool     `json:"visible"`
	Error   string   `json:"error,omitempty"`
}

type mapWorldToPixelArgs struct {
	Path   string `json:"path"`
	Frame  string `json:"frame"`
	Unit   string `json:"unit"`
	Points []struct {
		Lon float64 `json:"lon"`
		Lat float64 `json:"lat"`
	} `json:"points"`
}

func inputFrame(m *sunmap.Map, name string) (coords.Frame, error) {
	f := m.CoordinateFrame()
	switch name {
	case "", "map":
		return f, nil
	case "hgs":
		return f.WithName(coords.HeliographicStonyhurst), nil
	case "hgc":
		return f.WithName(coords.HeliographicCarrington), nil
	default:
		return coords.Frame{}, fmt.Errorf("unknown frame %q (use map, hgs or hgc)", name)
	}
}

func (s *Server) handleMapWorldToPixel(args json.RawMessage) (interface{}, error) {
	var a mapWorldToPixelArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Points) == 0 {
		return nil, errors.New("at least one point is required")
	}
	m, err := s.loadMap(a.Path)
	if err != nil {
		return nil, err
	}
	frame, err := inputFrame(m, a.Frame)
	if err != nil {
		return nil, err
	}
	if a.Unit == "" {
		a.Unit = "deg"
		if frame.Name == coords.Helioprojective {
			a.Unit = "arcsec"
		}
	}
	var toAngle func(float64) coords.Angle
	switch a.Unit {
	case "arcsec":
		toAngle = coords.Arcsec
	case "deg":
		toAngle = coords.Deg
	default:
		return nil, fmt.Errorf("unknown unit %q (use arcsec or deg)", a.Unit)
	}

	out := make([]PixelPoint, len(a.Points))
	for i, p := range a.Points {
		c := coords.New(toAngle(p.Lon), toAngle(p.Lat), frame)
		out[i] = PixelPoint{Lon: p.Lon, Lat: p.Lat, Visible: coords.Visible(c, m.CoordinateFrame().Observer)}
		x, y, err := m.WorldToPixel(c)
		if err != nil {
			out[i].Error = err.Error()
			continue
		}
		out[i].X, out[i].Y = finite(x), finite(y)
		out[i].InMap = x >= -0.5 && y >= -0.5 && x < float64(m.Width())-0.5 && y < float64(m.Height())-0.5
	}
	return map[string]interface{}{
		"frame":  string(frame.Name),
		"unit":   a.Unit,
		"points": out,
	}, nil
}

// === Contours ===

// ContourResult lists the traced polylines of one level.
type ContourResult struct {
	Level    float64        `json:"level"`
	Segments [][][2]float64 `json:"segments"`
}

type mapContoursArgs struct {
	Path    string    `json:"path"`
	Levels  []float64 `json:"levels"`
	Percent bool      `json:"percent"`
}

func (s *Server) handleMapContours(args json.RawMessage) (interface{}, error) {
	var a mapContoursArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	m, err := s.loadMap(a.Path)
	if err != nil {
		return nil, err
	}
	levels := sunmap.Absolute(a.Levels...)
	if a.Percent {
		levels = sunmap.Percent(a.Levels...)
	}
	lines, err := m.Contours(levels)
	if err != nil {
		return nil, err
	}

	out := make([]ContourResult, 0, len(lines))
	for _, l := range lines {
		out = append(out, ContourResult{Level: l.Level, Segments: splitSegments(l.X, l.Y)})
	}
	return map[string]interface{}{
		"count":    len(out),
		"contours": out,
	}, nil
}

// splitSegments breaks a NaN-separated polyline into its pieces.
func splitSegments(xs, ys []float64) [][][2]float64 {
	var segs [][][2]float64
	var cur [][2]float64
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			if len(cur) > 1 {
				segs = append(segs, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, [2]float64{xs[i], ys[i]})
	}
	if len(cur) > 1 {
		segs = append(segs, cur)
	}
	return segs
}
