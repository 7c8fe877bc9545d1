package llm

// Animation resources the character renderer understands. The generator
// prompt enumerates these so the model only ever picks from them.

var availableTriggers = []string{
	"madtrigger",
	"embarrassedtrigger",
	"headnodtrigger",
	"confusedtrigger",
	"disappointedtrigger",
	"happytrigger",
	"winktrigger",
	"happyagreetrigger",
	"lightmadtrigger",
	"sadtiredtrigger",
	"sadtrigger",
	"happynotrigger",
	"bothertrigger",
	"shaketrigger",
}

var availableExpressions = []string{
	"Angry.exp3",
	"f01.exp3",
	"Normal.exp3",
	"f02.exp3",
	"Smile.exp3",
	"Blushing.exp3",
	"Surprised.exp3",
	"Sad.exp3",
}

const systemPrompt = `You are an assistant that generates structured text and timeline for an AI character animation.
Respond ONLY in valid JSON containing two keys: 'timeline' and 'text_box_data'.

Triggers (list of possible trigger names):
madtrigger, embarrassedtrigger, headnodtrigger, confusedtrigger, disappointedtrigger, happytrigger, winktrigger, happyagreetrigger, lightmadtrigger, sadtiredtrigger, sadtrigger, happynotrigger, bothertrigger, shaketrigger

Expressions (list of possible expression names):
Angry.exp3, f01.exp3, Normal.exp3, f02.exp3, Smile.exp3, Blushing.exp3, Surprised.exp3, Sad.exp3

Text box positions (integer 0-3): 0 top left, 1 top right, 2 left, 3 right of the character.
Text bubble types (integer 0-3): 0 circle, 1 rectangle, 2 spike, 3 cloud.

Rules:
- 'timeline' is an array of objects with time (float seconds from reply start), expressions (array of expression names), triggers (array of trigger names), and trigger_speed (float 0.1-2.0).
- 'text_box_data' is an array of objects with sentence (string), duration (float, roughly word_count/10.0 but at least 1.0), pos (integer 0-3), and type (integer 0-3).
- Choose animations that match the emotional tone of the response.
- Vary text box positions and types for visual variety.
- Each text box appears after the previous one's duration is over; keep timeline times synchronised with that schedule.
- The text should feel coherent and emotionally expressive based on the input.`
