package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the FITS file (.fits or .fits.gz)",
	}
}

func outputProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Write the figure as PNG to this path instead of returning it as base64",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Map Information
		{
			Name:        "map_load",
			Description: "Load a FITS map and return its name, dimensions, frame, scale, reference pixel and data range. The file is cached for subsequent calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Rendering
		{
			Name:        "map_plot",
			Description: "Plot a map on world-coordinate axes and return the figure as base64-encoded PNG together with its hash and any recorded warnings.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"clip_interval": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "number"},
						"description": "Lower and upper percentiles used as the color limits, e.g. [1, 99.5]",
					},
					"colormap": map[string]interface{}{
						"type":        "string",
						"description": "Colormap name (default: chosen from the instrument)",
					},
					"grid": map[string]interface{}{
						"type":        "boolean",
						"description": "Overlay a heliographic grid (default: false)",
					},
					"grid_spacing": map[string]interface{}{
						"type":        "number",
						"description": "Grid spacing in degrees (default: 15)",
					},
					"limb": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw the solar limb (default: false)",
					},
					"non_wcs_axes": map[string]interface{}{
						"type":        "boolean",
						"description": "Plot on plain pixel axes. Records a UserWarning and disables overlays (default: false)",
					},
					"contour_percents": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "number"},
						"description": "Draw contours at these percentages of the data maximum",
					},
					"output": outputProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "map_peek",
			Description: "Render the quick-look figure of a map: plot with colorbar, optionally with grid and limb.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"grid": map[string]interface{}{
						"type":        "boolean",
						"description": "Overlay a heliographic grid (default: false)",
					},
					"grid_spacing": map[string]interface{}{
						"type":        "number",
						"description": "Grid spacing in degrees; implies grid",
					},
					"limb": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw the solar limb (default: false)",
					},
					"output": outputProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Resampling
		{
			Name:        "map_superpixel",
			Description: "Bin a map into superpixels of dim_x by dim_y pixels starting at the offset, and optionally write the result as FITS.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"dim_x": map[string]interface{}{
						"type":        "integer",
						"description": "Superpixel width in pixels",
					},
					"dim_y": map[string]interface{}{
						"type":        "integer",
						"description": "Superpixel height in pixels",
					},
					"offset_x": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels skipped on the left (default: 0)",
					},
					"offset_y": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels skipped at the bottom (default: 0)",
					},
					"reducer": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"sum", "mean", "median"},
						"description": "How each block is combined (default: sum)",
					},
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Write the binned map to this FITS path",
					},
				},
				"required": []string{"path", "dim_x", "dim_y"},
			},
		},
		{
			Name:        "map_submap",
			Description: "Cut a pixel rectangle out of a map, keeping its world coordinates, and optionally write it as FITS.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X pixel (0-based, inclusive)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Bottom edge Y pixel (0-based, inclusive)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Right edge X pixel (exclusive)",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y pixel (exclusive)",
					},
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Write the submap to this FITS path",
					},
				},
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},

		// Coordinates
		{
			Name:        "map_pixel_to_world",
			Description: "Convert 0-based pixel positions to world coordinates in the map's frame.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"points": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x": map[string]interface{}{"type": "number"},
								"y": map[string]interface{}{"type": "number"},
							},
							"required": []string{"x", "y"},
						},
						"description": "Pixel positions to convert",
					},
				},
				"required": []string{"path", "points"},
			},
		},
		{
			Name:        "map_world_to_pixel",
			Description: "Convert world coordinates to 0-based pixel positions. Coordinates in another frame are transformed into the map's frame first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"frame": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"map", "hgs", "hgc"},
						"description": "Frame of the input coordinates: the map's own, heliographic Stonyhurst or Carrington (default: map)",
					},
					"unit": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"arcsec", "deg"},
						"description": "Unit of the input angles (default: arcsec for helioprojective maps, deg otherwise)",
					},
					"points": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"lon": map[string]interface{}{"type": "number"},
								"lat": map[string]interface{}{"type": "number"},
							},
							"required": []string{"lon", "lat"},
						},
						"description": "World coordinates to convert",
					},
				},
				"required": []string{"path", "points"},
			},
		},

		// Contours
		{
			Name:        "map_contours",
			Description: "Trace contours of the map data. Returns pixel-coordinate polylines per level, split where masked pixels or the image edge interrupt them.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"levels": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "number"},
						"description": "Contour levels",
					},
					"percent": map[string]interface{}{
						"type":        "boolean",
						"description": "Interpret levels as percentages of the data maximum (default: false)",
					},
				},
				"required": []string{"path", "levels"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
