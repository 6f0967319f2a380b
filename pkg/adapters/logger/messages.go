package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration level messages (info)
		"Starting export":                        "書き出しを開始します",
		"Export completed":                       "書き出しが完了しました",
		"Export completed (degraded, no alpha)":  "書き出しが完了しました (代替モード、アルファなし)",
		"Output saved to %s":                     "出力を %s に保存しました",
		"Interrupted, shutting down...":          "中断されました。シャットダウン中...",
		"Listening on %s":                        "%s で待ち受けています",
		"Resolved duration: %.3fs (nominal %.3fs)": "解決された長さ: %.3f秒 (名目 %.3f秒)",
		"Retrying with degraded capture strategy": "代替キャプチャ戦略で再試行します",

		// Audio source resolution
		"Resolving audio sources":                   "音声ソースを解決中",
		"Synthesized %d virtual audio clips":        "%d 個の仮想音声クリップを合成しました",

		// Capture stage
		"Capturing %d frames at %.1f fps":  "%d フレームを %.1f fps でキャプチャ中",
		"Captured %d frames into %d bytes": "%d フレームを %d バイトにキャプチャしました",
		"Renderer closed":                  "レンダラーを閉じました",
		"Renderer did not settle at %.3fs": "レンダラーが %.3f秒 で安定しませんでした",

		// Audio mix stage
		"Mixing %d audio clips":                    "%d 個の音声クリップをミックス中",
		"Dropped audio clip %s: %s":                "音声クリップ %s を除外しました: %s",
		"All audio clips failed, continuing video-only": "全ての音声クリップが失敗しました。映像のみで続行します",
		"Audio mix completed: %d bytes":            "音声ミックス完了: %d バイト",

		// Combine stage
		"No audio stream, returning video-only": "音声ストリームがないため映像のみを返します",
		"Mux failed, falling back to video-only: %s": "多重化に失敗しました。映像のみにフォールバックします: %s",
		"Streams combined: %d bytes":            "ストリームを結合しました: %d バイト",

		// Errors
		"Export failed: %s":          "書き出しに失敗しました: %s",
		"Failed to write output: %s": "出力の書き込みに失敗しました: %s",
	})
}
