// Package server implements the MCP (Model Context Protocol) server for solar map tools.
//
// The server speaks JSON-RPC 2.0 over stdio and exposes the sunmap package to
// MCP clients: loading FITS maps, rendering them with overlays, resampling,
// coordinate conversion and contour tracing.
//
// # Protocol
//
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//   - Figure warnings are also sent as notifications/message (level
//     "warning") ahead of the response to the call that produced them
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Map Information:
//   - map_load: Load a FITS map and describe it
//
// Rendering:
//   - map_plot: Plot with optional clip interval, grid, limb and contours
//   - map_peek: Quick-look figure with colorbar
//
// Resampling:
//   - map_superpixel: Bin pixels into superpixels
//   - map_submap: Cut out a pixel region
//
// Coordinates:
//   - map_pixel_to_world: Pixel to world coordinates
//   - map_world_to_pixel: World (map frame, Stonyhurst or Carrington) to pixel
//
// Contours:
//   - map_contours: Trace contour polylines
//
// Rendering tools return the PNG as base64 unless an output path is given,
// together with the figure hash and any recorded warnings such as the
// UserWarning for plots on plain pixel axes.
//
// # Caching
//
// FITS files are cached by path for the lifetime of the process. Files
// written by the resampling tools are evicted so a later load sees the new
// content. A cache passed with WithCache may be watched with
// fitsfile.NewWatcher to drop files changed by other processes as well.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000 and the Go error string as data. Invalid tools/call parameters use
// -32602 and unknown methods -32601. Logs go to the zap logger, never to
// stdout.
package server
