// Package main provides localization for the mpeg1enc CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Encode image sequences and raw video as MPEG-1 video streams.": "画像シーケンスや非圧縮動画をMPEG-1ビデオストリームにエンコードします。",

		// Version command
		"mpeg1enc version %s": "mpeg1enc バージョン %s",

		// Inspect command
		"No sequence header":                                "シーケンスヘッダがありません",
		"Sequence: %dx%d, %.3f fps, aspect code %d":         "シーケンス: %dx%d, %.3f fps, アスペクトコード %d",
		"Bit rate: variable, buffer %d bits":                "ビットレート: 可変, バッファ %d ビット",
		"Bit rate: %d bit/s, buffer %d bits":                "ビットレート: %d bit/s, バッファ %d ビット",
		"Custom matrices: intra %v, non-intra %v":           "カスタム量子化マトリクス: イントラ %v, 非イントラ %v",
		"User data: %q":                                     "ユーザーデータ: %q",
		"%d bytes, %d GOPs, %d pictures (%d I, %d P, %d B)": "%d バイト, %d GOP, %d ピクチャ (I %d, P %d, B %d)",
		"Warning: stream has no sequence end code":          "警告: ストリームにシーケンス終了コードがありません",

		// Summary content
		"Encode Summary":    "エンコードサマリー",
		"Source":            "入力",
		"Input":             "入力元",
		"Size":              "サイズ",
		"Frame Rate":        "フレームレート",
		"Frames":            "フレーム",
		"Settings":          "設定",
		"Preset":            "プリセット",
		"Pattern":           "ピクチャパターン",
		"Rate Control":      "レート制御",
		"Quantizer":         "量子化スケール",
		"Motion Search":     "動き探索",
		"Reference":         "参照フレーム",
		"Output":            "出力",
		"File":              "ファイル",
		"Container":         "コンテナ",
		"Stream Size":       "ストリームサイズ",
		"File Size":         "ファイルサイズ",
		"Duration":          "再生時間",
		"Average Bit Rate":  "平均ビットレート",
		"Pictures":          "ピクチャ数",
		"Dropped Frames":    "破棄フレーム数",
		"Compression Ratio": "圧縮率",
		"Average PSNR (Y)":  "平均PSNR (Y)",
		"Quantizer Retries": "量子化リトライ数",
		"Encode Time":       "エンコード時間",
		"Picture Types":     "ピクチャタイプ別",
		"Type":              "タイプ",
		"Intra MB":          "イントラMB",
		"Inter MB":          "インターMB",
		"Skipped MB":        "スキップMB",
		"Coded Blocks":      "符号化ブロック",
		"Avg Size":          "平均サイズ",
		"Generated at":      "生成日時",
		"session":           "セッション",
	})
}
