package oracle

import (
	"fmt"

	"github.com/rcliao/wingo/internal/chart"
	"github.com/rcliao/wingo/internal/model"
	"github.com/rcliao/wingo/internal/predict"
)

// Welcome is the reply to /start.
const Welcome = "🎉 *Welcome to Wingo Color Prediction Bot!*\n\n" +
	"📸 Send a screenshot of your color chart.\n" +
	"🔢 Or enter a serial number like `10775` to get prediction.\n" +
	"✅ If I'm wrong, reply like: `Correct: GREEN BIG`\n\n" +
	"🛡️ Works in groups, channels, and private chat."

// AnalyzingReply acknowledges a photo before its analysis is sent.
const AnalyzingReply = "📸 Received image. Analyzing..."

const (
	invalidInputReply  = "❌ Please send a valid 5-digit serial or image."
	noSerialReply      = "❌ No serial found or invalid format."
	imageFailedReply   = "❌ Could not read that image. Please send a clearer screenshot."
	storageFailedReply = "⚠️ Something went wrong saving your data. Please try again."
)

func predictionReply(p predict.Prediction) string {
	return fmt.Sprintf("🎯 Serial: %s\n🎨 Color: %s\n🔸 Size: %s", p.Serial, p.Color, p.Size)
}

func correctionReply(o *model.Override) string {
	return fmt.Sprintf("✅ Updated memory: %s → %s %s", o.Serial, o.Color, o.Size)
}

func analysisReply(r *chart.Report) string {
	return "📊 Analysis Complete:\n\n" + r.String()
}
