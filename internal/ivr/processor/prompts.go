package processor

// Prompt is a canned message. Name doubles as the audio file name when
// prompts are served as files.
type Prompt struct {
	Name string
	Text string
}

var (
	MainMenu = Prompt{
		Name: "MainMenu",
		Text: "Hello this is Contoso Bank, we’re calling in regard to your appointment tomorrow at 9am to open a new account. Please say confirm if this time is still suitable for you or say cancel if you would like to cancel this appointment.",
	}
	ConfirmedText = Prompt{
		Name: "Confirmed",
		Text: "Thank you for confirming your appointment tomorrow at 9am, we look forward to meeting with you.",
	}
	CancelText = Prompt{
		Name: "Cancelled",
		Text: "Your appointment tomorrow at 9am has been cancelled. Please call the bank directly if you would like to rebook for another date and time.",
	}
	CustomerQueryTimeout = Prompt{
		Name: "Timeout",
		Text: "I’m sorry I didn’t receive a response, please try again.",
	}
	NoResponse = Prompt{
		Name: "NoResponse",
		Text: "I didn't receive an input, we will go ahead and confirm your appointment. Goodbye",
	}
	InvalidAudio = Prompt{
		Name: "InvalidAudio",
		Text: "I’m sorry, I didn’t understand your response, please try again.",
	}
)

// Prompts lists every prompt the menu can play.
var Prompts = []Prompt{MainMenu, ConfirmedText, CancelText, CustomerQueryTimeout, NoResponse, InvalidAudio}

// failurePrompts maps recognize-failed sub-codes to the re-prompt. Codes not
// listed get CustomerQueryTimeout.
var failurePrompts = map[int]Prompt{
	8510: CustomerQueryTimeout,
	8511: CustomerQueryTimeout,
	8534: InvalidAudio,
	8547: InvalidAudio,
}

func failurePrompt(subCode int) Prompt {
	if prompt, ok := failurePrompts[subCode]; ok {
		return prompt
	}
	return CustomerQueryTimeout
}
