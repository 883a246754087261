// Command catalogtool provides maintenance operations over a videopipe
// catalog database outside of the normal discovery run lifecycle.
//
// It supports the following operations:
//   - scan:       run a discovery pass over a filesystem root
//   - stats:      print catalog-wide statistics
//   - thumbnails: list or regenerate videos missing a cover thumbnail
//   - smart-eval: evaluate a smart-folder criteria set against the catalog
//
// Usage:
//
//	catalogtool <command> [args]
//
// Commands:
//
//	scan <root> [--recursive] [--update]
//	        Discover video files under root and upsert them into the
//	        catalog. --recursive walks subdirectories; --update also
//	        reprocesses files already present in the catalog.
//
//	stats
//	        Print video, folder, and artifact counts.
//
//	thumbnails check <root>
//	        List videos under root whose cover thumbnail is not in a
//	        completed state.
//
//	thumbnails regenerate <root> [--yes]
//	        Regenerate thumbnails for those videos. Prompts for
//	        confirmation on an interactive terminal; pass --yes to skip
//	        the prompt for scripted use.
//
//	smart-eval --name=a,b --min-size=N --max-size=N
//	        Evaluate a smart-folder criteria set and report the
//	        added/removed diff against its previous evaluation.
//
//	playlist import <file.wpl> [mediaDir]
//	        Parse a Windows Media Player playlist and record it as a
//	        playlist-type catalog entry. mediaDir defaults to the
//	        playlist's own directory and is used to resolve relative
//	        and by-filename media references.
//
// Environment:
//
//	CATALOG_DB     - Path to the catalog database (default: /data/catalog.db)
//	FFPROBE_PATH   - Path to the ffprobe binary (default: ffprobe)
//	FFMPEG_PATH    - Path to the ffmpeg binary (default: ffmpeg)
//	THUMBNAIL_DIR  - Directory for cover thumbnails (default: /data/Thumbnails)
package main
