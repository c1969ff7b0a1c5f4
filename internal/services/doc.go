// Package services implements the external collaborators of the acquisition pipeline.
//
// # Collaborators
//
//   - [MetadataProvider] : playlist membership ([SpotifyService], client credentials)
//   - [SearchProvider] : text query to candidate locators ([YTDLPSearch], [YouTubeService] proxy)
//   - [MediaSource] : audio-only byte stream for a locator ([YouTubeSource], [YTDLPSource])
//   - [Transcoder] : constant bitrate MP3 encoding ([FFmpeg])
//   - [Tagger] : ID3 title/artist frames ([ID3Tagger])
//
// # Credentials
//
// [SpotifyService.Authenticate] returns a per-run [Credential]; nothing is cached on the
// service itself, so two runs never share a token.
//
// # Error Handling
//
// HTTP failures wrap [shared.ErrAPIRequest]. Authentication failures wrap
// [shared.ErrAuthFailed]. Subprocess failures include the tool's trimmed stderr.
package services
