package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration level messages
		"Starting encode session %s":          "エンコードセッション %s を開始します",
		"Encoding %s (%s preset)...":          "%s をエンコード中 (%s プリセット)...",
		"Video encoded: %d bytes":             "動画をエンコードしました: %d バイト",
		"%d trailing frames were not encoded": "末尾の %d フレームはエンコードされませんでした",
		"Output saved to %s":                  "出力を %s に保存しました",
		"Summary saved to %s":                 "サマリーを %s に保存しました",
		"Interrupted, shutting down...":       "中断されました。シャットダウン中...",

		// Probe stage
		"Source: %dx%d, %d frames":           "入力: %dx%d, %d フレーム",
		"Padding %dx%d to whole macroblocks": "%dx%d をマクロブロック単位にパディングします",

		// Encode stage
		"Encoding %d frames at %dx%d, pattern %s":                         "%d フレームを %dx%d でエンコード中, パターン %s",
		"Dropping %d trailing frames without a future reference":          "後方参照のない末尾 %d フレームを破棄します",
		"Frame %d (%s): %d bits, q %d-%d, %d intra, %d inter, %d skipped": "フレーム %d (%s): %d ビット, q %d-%d, イントラ %d, インター %d, スキップ %d",
		"Macroblock %d of frame %d clipped at quantizer scale %d":         "フレーム %[2]d のマクロブロック %[1]d を量子化スケール %[3]d でクリップしました",
		"Retrying frame %d (attempt %d of %d): %v":                        "フレーム %d を再読み込み中 (%d / %d 回目): %v",
		"Failed to save reconstructed frame %d: %v":                       "再構成フレーム %d の保存に失敗しました: %v",

		// Rate control
		"GOP budget %.0f bits for %d pictures":      "GOP の割り当て %.0f ビット (%d ピクチャ)",
		"%s picture: target %.0f, produced %d bits": "%s ピクチャ: 目標 %.0f, 実際 %d ビット",
		"Video buffer full, %.0f bits of stuffing":  "ビデオバッファが満杯です。%.0f ビットのスタッフィング",
		"Video buffer underflow by %.0f bits":       "ビデオバッファが %.0f ビットアンダーフローしました",

		// Mux stage
		"Muxed %d bytes into %d byte %s container": "%d バイトを %d バイトの %s コンテナに格納しました",

		// Errors
		"Failed to probe source: %s":             "入力の解析に失敗しました: %s",
		"Failed to encode video: %s":             "動画のエンコードに失敗しました: %s",
		"Encoded stream failed verification: %s": "エンコード結果の検証に失敗しました: %s",
		"Failed to build container: %s":          "コンテナの作成に失敗しました: %s",
		"Failed to write output: %s":             "出力の書き込みに失敗しました: %s",
		"Failed to write summary: %s":            "サマリーの書き込みに失敗しました: %s",
	})
}
