package gemini

// ChitchatInstructionHeader is prepended to the configured system
// instruction. Replies are delivered as plain Telegram text.
const ChitchatInstructionHeader = `You answer messages sent to a Telegram bot in a one-to-one chat. Reply in plain text without Markdown, keep it to a few sentences, and answer in the language of the question.

`
