// Package transcode turns rendered image sequences into preview movies with
// ffmpeg. The process runs to completion before Encode returns; its output is
// captured and logged, never streamed.
package transcode
