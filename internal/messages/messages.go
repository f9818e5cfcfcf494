// Package messages holds every user-facing text and keyboard the bot sends.
// Handlers compose replies from these so the wording lives in one place.
package messages

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Reply keyboard button labels. The dispatcher matches incoming text
// against these, so changing a label here changes routing too.
const (
	BtnStartGeneration = "🎬 Start Generating a New Video"
	BtnVideoLibrary    = "📚 Video Library"
	BtnSetupYouTube    = "⚙️ Set Up YouTube Channel"
	BtnChangeChannel   = "🔄 Change Channel Settings"
	BtnDeleteChannel   = "🗑️ Delete Channel"
	BtnUploadToYouTube = "📺 Upload to YouTube"
	BtnMainMenu        = "🔙 Main Menu"
)

// Inline callback data values.
const (
	CbStartGeneration   = "start_generation"
	CbSetupYouTube      = "setup_youtube"
	CbVideoLibrary      = "video_library"
	CbBackToMain        = "back_to_main"
	CbCancel            = "cancel"
	CbUploadFromLibrary = "upload_from_library:" // followed by a task id
)

func MainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnStartGeneration),
			tgbotapi.NewKeyboardButton(BtnVideoLibrary),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnSetupYouTube),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func ChannelManageKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnChangeChannel),
			tgbotapi.NewKeyboardButton(BtnDeleteChannel),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnMainMenu),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func VideoActionsKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnUploadToYouTube),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnMainMenu),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

// LibraryKeyboard lists up to ten videos as reply buttons plus a back row.
func LibraryKeyboard(prompts []string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(prompts)+1)
	for i, p := range prompts {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(LibraryButtonText(i, p)),
		))
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(BtnMainMenu),
	))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

// PublishKeyboard offers immediate publishing of a finished video. The
// callback routes through the same handler as library republishing.
func PublishKeyboard(taskID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📺 Publish now on YouTube", CbUploadFromLibrary+taskID),
		),
	)
}

// LibraryButtonText renders one library entry button. idx is zero based.
func LibraryButtonText(idx int, prompt string) string {
	p := strings.TrimSpace(prompt)
	if p == "" {
		p = "No description"
	} else if len([]rune(p)) > 25 {
		p = string([]rune(p)[:25]) + "..."
	}
	return fmt.Sprintf("🎬 %d. %s", idx+1, p)
}

const Welcome = `👋 Welcome to the AI Video Generation Bot!

🤖 What you can do:
• 🎬 Generate new videos using AI
• 📚 Access the generated video library
• 📺 Publish videos directly to YouTube

🚀 How to use:
1. Press "🎬 Start Generating a New Video"
2. Send the base video
3. Send the image
4. Write the video description (prompt)
5. Wait until the video is generated

💡 Tip: You can set up a YouTube channel to publish videos directly!

Start now using the buttons below 👇`

const VideoRequest = `📹 Step 1/3: Send the reference video

📌 Requirements:
• Duration: 3–30 seconds
• The head, shoulders, and torso must be clearly visible
• Supported formats: MP4, MOV, MKV
• Maximum size: 100 MB

Please send the video now 👇`

const ImageRequest = `🖼️ Step 2/3: Send the reference image

📌 Requirements:
• The head, shoulders, and torso must be clearly visible
• Supported formats: JPEG, PNG, WEBP
• Maximum size: 10 MB

Please send the image now 👇`

const PromptRequest = `✍️ Step 3/3: Write the video description (prompt)

📝 Write a text description of the video you want to generate.
Example: "The cartoon character is dancing"

📌 Maximum length: 2500 characters

Please send the description now 👇`

const SetupStep1 = `⚙️ YouTube Channel Setup – Step 1/3

🔐 Please send your Client Secret.

📝 How to get the Client Secret:
1. Go to Google Cloud Console
2. Select your project or create a new one
3. Enable YouTube Data API v3
4. Go to "Credentials"
5. Create an OAuth 2.0 Client ID (if it doesn't exist)
6. Copy the "Client Secret" and send it here

Please send the Client Secret now 👇`

const SetupStep2 = `⚙️ YouTube Channel Setup – Step 2/3

🆔 Please send your Client ID.

📝 How to get the Client ID:
1. On the same Credentials page in Google Cloud Console
2. Find the OAuth 2.0 Client ID you created
3. Copy the "Client ID" and send it here

Please send the Client ID now 👇`

const SetupStep3 = `⚙️ YouTube Channel Setup – Step 3/3

🔄 Please send your Refresh Token.

📝 How to get the Refresh Token:
1. Use OAuth 2.0 Playground or a similar tool
2. Select YouTube Data API v3
3. Choose the required scopes (upload, manage)
4. Complete the authentication process
5. Copy the "Refresh Token" and send it here

Please send the Refresh Token now 👇`

func SetupSuccess(channelTitle string) string {
	return fmt.Sprintf(`✅ YouTube channel has been set up successfully!

📺 Channel: %s

You can now publish videos directly to YouTube from the bot.`, channelTitle)
}

func ChannelSettings(channelTitle string) string {
	if channelTitle == "" {
		channelTitle = "YouTube Channel"
	}
	return fmt.Sprintf("⚙️ YouTube Channel Settings\n\n✅ Channel configured: %s\n\nChoose the desired action:", channelTitle)
}

const (
	Canceled           = "✅ The operation has been canceled. Start again using /start"
	UseButtons         = "👋 Use the buttons below to get started"
	MainMenu           = "👋 Main Menu"
	SendVideoPlease    = "⚠️ Please send a video."
	SendImagePlease    = "⚠️ Please send an image."
	SendPromptPlease   = "⚠️ Please send a text prompt for the video."
	SendSecretPlease   = "⚠️ Please send the Client Secret."
	SendClientIDPlease = "⚠️ Please send the Client ID."
	SendTokenPlease    = "⚠️ Please send the Refresh Token."
	SendDescPlease     = "⚠️ Please send the video description."

	VideoReceived  = "✅ The video has been received successfully!"
	ImageReceived  = "✅ The image has been received successfully!"
	PromptReceived = "✅ The prompt has been received! Starting video generation..."
	PromptTooLong  = "❌ The prompt is too long. The maximum length is 2500 characters.\n\nPlease send a shorter prompt."
	Generating     = "⏳ The video is currently being generated. Please wait..."

	VerifyingCredentials = "🔍 Verifying channel credentials..."
	ChannelDeleted       = "✅ The YouTube channel has been deleted successfully."
	ChannelDeleteFailed  = "❌ An error occurred while deleting the channel."
	ChannelNotConfigured = "⚠️ YouTube channel is not set up yet.\n\nPlease set up the channel first using the \"⚙️ Set Up YouTube Channel\" button"

	DescriptionRequest = "✍️ Please send the video description that will appear on YouTube:\n\nExample: \"An amazing video about artificial intelligence\"\n\n📝 Write the description now 👇"
	Uploading          = "📤 Uploading the video to YouTube..."
	UploadQueued       = "📤 The video has been queued for upload to YouTube. You will receive the link once it is published."

	GenerationSucceeded = "✅ The video has been generated successfully!"
	GenerationNoURL     = "❌ The video was generated but no video link was found."
	GenerationTimedOut  = "⏰ Video generation took too long. Please try again later."

	LibraryEmpty       = "📚 Video Library\n\n❌ There are no videos in the library yet.\n\nStart generating a new video!"
	VideoSelectError   = "❌ Error selecting the video. Please try again."
	VideoNotFound      = "❌ The selected video does not exist."
	NoGeneratedVideo   = "❌ No generated video was found. Please generate a new video first."
	GenericError       = "❌ An error occurred while processing the request. Please try again."
	GenericLibraryErr  = "❌ An error occurred while loading the library. Please try again."
)

func CredentialVerFailed(detail string) string {
	return fmt.Sprintf("❌ Failed to verify the channel credentials.\n\nDetails:\n%s\n\nPlease check the values and send the Refresh Token again.", detail)
}

func LibraryList(total int) string {
	return fmt.Sprintf("📚 Video Library\n\nSelect the video you want to publish on YouTube:\n\nTotal videos: %d", total)
}

func SelectedVideo(prompt string, createdAt time.Time, hasChannel bool) string {
	if strings.TrimSpace(prompt) == "" {
		prompt = "No description"
	}
	footer := "You can publish this video on YouTube now!"
	if !hasChannel {
		footer = "⚠️ You must set up a YouTube channel first."
	}
	return fmt.Sprintf("🎬 Selected Video\n\n📝 Description: %s\n📅 Date: %s\n\n%s",
		prompt, createdAt.Format("2006-01-02"), footer)
}

func VideoError(detail string) string {
	return fmt.Sprintf("❌ Video error:\n%s\n\nPlease send a valid video.", detail)
}

func ImageError(detail string) string {
	return fmt.Sprintf("❌ Image error:\n%s\n\nPlease send a valid image.", detail)
}

func GenerationFailed(failCode, failMsg string) string {
	var b strings.Builder
	b.WriteString("❌ Video generation failed.")
	if failMsg != "" {
		b.WriteString("\n\nDetails:\n" + failMsg)
	}
	if failCode != "" {
		b.WriteString("\n\nError code: " + failCode)
	}
	return b.String()
}

func GenerationStartFailed(detail string) string {
	return fmt.Sprintf("❌ Failed to start video generation.\n\nDetails:\n%s\n\nPlease try again with /start", detail)
}

// GenerationProgress renders the animated progress line shown while a task
// is running. The dot count cycles so the message visibly changes.
func GenerationProgress(elapsed time.Duration, frame int) string {
	dots := strings.Repeat(".", frame%4)
	return fmt.Sprintf("⏳ Generating the video%s\n\nElapsed time: %d seconds", dots, int(elapsed.Seconds()))
}

func UploadSucceeded(shortsURL string) string {
	return fmt.Sprintf("✅ The video has been published on YouTube successfully!\n\n📺 Video link:\n%s\n\n🎉 You can now watch it on your channel!", shortsURL)
}

func UploadFailed(detail string) string {
	return fmt.Sprintf("❌ Failed to upload the video to YouTube.\n\nDetails:\n%s\n\nPlease check the channel settings and try again.", detail)
}
