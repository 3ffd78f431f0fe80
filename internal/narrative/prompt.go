package narrative

import (
	"fmt"
	"strings"

	"github.com/mata-s/novel-day/internal/models"
)

// CompletionRequest is the single outbound request the engine issues per
// generation. The response is expected to be a JSON object with exactly two
// fields, title and body.
type CompletionRequest struct {
	Model       string
	System      string
	User        string
	Temperature float64
	MaxTokens   int64
	JSONMode    bool
}

// Generation parameters per period kind.
const (
	weeklyModel  = "gpt-4.1-mini"
	monthlyModel = "gpt-4.1"
	dailyModel   = "gpt-4.1-mini"

	chapterTemperature = 0.8

	weeklyMaxTokens  = 2000
	monthlyMaxTokens = 4000
	dailyMaxTokens   = 1000
)

// Entry logs are truncated at this many runes to bound request size.
const (
	logBudgetRunes = 8000
	logEllipsis    = "\n...(省略)"
)

// ComposeChapterPrompt builds the completion request for a weekly or monthly
// chapter from the window's entries, the resolved persona and the dominant
// style tag.
func ComposeChapterPrompt(entries []models.SourceEntry, persona models.Persona, style string, kind models.PeriodKind) CompletionRequest {
	if kind == models.PeriodMonthly {
		return CompletionRequest{
			Model:       monthlyModel,
			System:      systemPrompt(kind, style),
			User:        monthlyUserPrompt(entries, persona),
			Temperature: chapterTemperature,
			MaxTokens:   monthlyMaxTokens,
			JSONMode:    true,
		}
	}
	return CompletionRequest{
		Model:       weeklyModel,
		System:      systemPrompt(kind, style),
		User:        weeklyUserPrompt(entries, persona),
		Temperature: chapterTemperature,
		MaxTokens:   weeklyMaxTokens,
		JSONMode:    true,
	}
}

// ComposeDailyPrompt builds the completion request for the on-demand daily
// chapter: one memo plus an explicitly chosen style.
func ComposeDailyPrompt(memo, style string, persona models.Persona) CompletionRequest {
	firstPerson := persona.FirstPerson
	if strings.TrimSpace(firstPerson) == "" {
		firstPerson = models.DefaultFirstPerson
	}

	namePart := persona.Name
	if namePart == "" {
		namePart = "（名前は必ずしも本文に出さなくてよい）"
	}

	prompt := fmt.Sprintf(`あなたは、日本語で短い小説風テキストを書く作家です。
ユーザーが書いたメモ（日記の断片）をもとに、その日の「一章」を書いてください。

文体タイプ:
- 選択されたスタイル: %s
- スタイルの特徴: %s

主人公の設定:
- 一人称: %s
- 名前: %s

本文は必ずこの主人公の一人称で書いてください。
他の語り手や三人称に変えず、この人物視点の地の文で統一してください。

条件:
- 上記のスタイル説明に沿ったトーンとリズムで書いてください
- 文字数の目安: 120〜200文字程度
- 日常の出来事を少しだけドラマティックに、でもやりすぎない表現で
- メモに書かれている出来事や感情を大切にしつつ、情景描写と心情を足してください
- 「ですます調」ではなく、「〜した」「〜だった」のような地の文で書いてください

出力フォーマット:
必ず次のJSON形式で返してください（余計なテキストは書かないこと）:
{"title": "タイトル", "body": "本文"}

ユーザーのメモ:
%s`, style, styleLabel(style), firstPerson, namePart, memo)

	return CompletionRequest{
		Model:       dailyModel,
		System:      "あなたは短い日本語小説を書くAIです。",
		User:        prompt,
		Temperature: chapterTemperature,
		MaxTokens:   dailyMaxTokens,
		JSONMode:    true,
	}
}

// Voice profiles. Unrecognized or absent style tags fall back to soft.
func styleLabel(style string) string {
	switch normalizeStyle(style) {
	case "poetic":
		return "詩的描写・夜の静けさ・やさしい日常"
	case "dramatic":
		return "どこか切ない・前向きポジティブ・物語風ファンタジー"
	default:
		return "やわらか文学系・現代カジュアル・少しファンタジー"
	}
}

func normalizeStyle(style string) string {
	raw := strings.TrimSpace(style)
	switch {
	case strings.EqualFold(raw, "B") || strings.EqualFold(raw, "poetic"):
		return "poetic"
	case strings.EqualFold(raw, "C") || strings.EqualFold(raw, "dramatic"):
		return "dramatic"
	default:
		return "soft"
	}
}

func systemPrompt(kind models.PeriodKind, style string) string {
	var baseTail string
	if kind == models.PeriodMonthly {
		baseTail = "与えられた1ヶ月分の日記ログをもとに、ひとつの連続した短編小説を作ります。" +
			"出力は必ず JSON 形式で { \"title\": string, \"body\": string } のみを返してください。" +
			"文章の段落は字下げせず、行頭に全角スペース（「　」）などを入れないでください。改行のみで段落を区切ってください。"
	} else {
		baseTail = "ユーザーの1週間分のエピソードをもとに、『第○週 まとめ章』となる短い小説風テキストを書きます。" +
			"出力は必ず JSON 形式で { \"title\": string, \"body\": string } のみを返してください。" +
			"タイトルは詩的にしすぎず、ダッシュや副題を使わないでください。" +
			"文章の段落は字下げせず、改行のみで統一してください。"
	}

	var verb string
	if kind == models.PeriodMonthly {
		verb = "短編小説を書く"
	} else {
		verb = "短い章を書いていく"
	}

	switch normalizeStyle(style) {
	case "poetic":
		return "あなたは日本語で、詩的描写・夜の静けさ・やさしい日常の文体で" + verb + "作家です。" +
			"情景描写や静けさ、余韻を大切にしてください。" + baseTail
	case "dramatic":
		return "あなたは日本語で、どこか切ない・前向きポジティブ・物語風ファンタジーの文体で" + verb + "作家です。" +
			"心の揺れやドラマ性を丁寧に描きながら、小さな希望が残るようにしてください。" + baseTail
	default:
		return "あなたは日本語で、やわらか文学系・現代カジュアル・少しファンタジーの文体で" + verb + "作家です。" + baseTail
	}
}

// weeklyUserPrompt embeds the week's entries and persona framing.
func weeklyUserPrompt(entries []models.SourceEntry, persona models.Persona) string {
	var lines []string
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("■ 日付: %s\n・メモ: %s\n・小説: %s",
			entryDate(e), strings.TrimSpace(e.Memo), strings.TrimSpace(e.Body)))
	}
	entriesText := truncateLog(strings.Join(lines, "\n\n"))

	namePart := persona.Name
	if namePart == "" {
		namePart = "（名前は本文に出してもし出さなくてもよい）"
	}

	return fmt.Sprintf(`あなたは、日本語で短い小説風テキストを書く作家です。
ユーザーの1週間分のエピソードをもとに、「第○週 まとめ章」を書いてください。

主人公の設定:
- 一人称: %s
- 名前: %s

本文は必ずこの主人公の一人称で書いてください。
他の語り手や三人称に変えず、この人物視点の地の文で統一してください。

参考情報（この1週間の生活のヒント）:
%s
%s

%s

1週間の要素として意識してほしいこと:
- 先週の空気感（全体的にどんな1週間だったか）
- 心のトーンの変化（落ち込み・回復・ちいさな喜びなど）
- 食べたものの傾向（よく出てきた食べ物があればさりげなく登場）
- よく出てきたキーワードや場面（駅・空・雨・コーヒーなど）

条件:
- 文字数の目安: 400〜800文字程度
- 日常の出来事を少しだけドラマティックに、でもやりすぎない表現で
- 一週間を振り返る「まとめ章」として、読み終わったときに少しだけ前向きになれるトーンで
- 「ですます調」ではなく、「〜した」「〜だった」のような地の文で書いてください
- タイトルにダッシュ（— / ― / —— / ーー / -）や詩的な副題は使わず、素朴で説明的なタイトルにしてください。
- 段落冒頭に全角スペースや字下げは入れず、改行のみで段落を区切ってください。
- すべての段落でインデントの有無を統一してください。

出力フォーマット:
必ず次のJSON形式で返してください（余計なテキストは書かないこと）:
{"title": "タイトル", "body": "本文"}

対象の1週間の素材（メモと小説）は次の通りです:
%s`,
		persona.FirstPerson, namePart,
		occupationHint(persona), freeContextHint(persona), hintUsageRules(),
		entriesText)
}

// monthlyUserPrompt embeds the month's log lines, persona framing and the
// length guidance tier for the entry count.
func monthlyUserPrompt(entries []models.SourceEntry, persona models.Persona) string {
	var lines []string
	for _, e := range entries {
		parts := []string{fmt.Sprintf("日付: %s", entryDate(e))}
		if memo := collapseWhitespace(e.Memo); memo != "" {
			parts = append(parts, "メモ: "+memo)
		}
		if body := collapseWhitespace(e.Body); body != "" {
			parts = append(parts, "短編の一部: "+body)
		}
		lines = append(lines, "- "+strings.Join(parts, " / "))
	}
	logs := truncateLog(strings.Join(lines, "\n"))

	namePart := "主人公の名前は特に指定しません。"
	if persona.Name != "" {
		namePart = fmt.Sprintf("主人公の名前は「%s」ですが、無理に頻繁に出す必要はありません。時々さりげなく出す程度で構いません。", persona.Name)
	}

	return fmt.Sprintf(`以下は、ある1ヶ月のあいだに書かれた短い日記・短編のログです。

%s

参考情報（この1ヶ月の生活のヒント）:
%s
%s

%s

この1ヶ月分の出来事や心の動きをもとに、

- 冒頭で「今月全体の空気感」を描き、
- 中盤で印象的だった出来事や、心の揺れ・変化を織り込み、
- 終盤で「この1ヶ月を少しだけ受け止めて、次の月へ進んでいく」ような余韻で締める

ひとつの連続した短編小説を、日本語で書いてください。

条件:
- 一人称は必ず「%s」で統一してください。
- %s
- トーンは、静かでやさしく、ときどき少し切ない雰囲気で。
- 日記の具体的な出来事（食べ物、天気、人とのやりとりなど）を適度に拾いながら、「ひとつの物語」になるように再構成してください。
- ポジティブすぎず、ネガティブすぎず、「なんとか今日を生きている」感じのリアルさと、小さな希望を大事にしてください。
- 段落の先頭に全角スペース（「　」）などの字下げを入れず、行頭からそのまま文章を書き始めてください。
- 改行のみで段落を区切り、字下げの有無が段落ごとに混在しないようにしてください。
- 終盤のまとめでは、「前に進んでいこう」「物語はまだ続いていく」などの紋切り型の前向きフレーズを多用しないでください。
- 希望や前向きさは、行動や情景の描写からほのかに伝わる程度にとどめてください。
- %s

出力は必ず JSON 形式で返してください。
以下の2つのキーだけを含めてください:

{
  "title": "短編小説としてのタイトル",
  "body": "短編小説の本文（改行込み）"
}`,
		logs,
		occupationHint(persona), freeContextHint(persona), hintUsageRules(),
		persona.FirstPerson, namePart,
		lengthHint(len(entries)))
}

// lengthHint scales the character-count guidance to the entry volume.
func lengthHint(count int) string {
	switch {
	case count <= 7:
		return "文字数の目安は 2000〜3500字程度です。（多少前後しても構いません）"
	case count <= 20:
		return "文字数の目安は 3500〜5500字程度です。（多少前後しても構いません）"
	default:
		return "文字数の目安は 5000〜7500字程度です。（多少前後しても構いません）"
	}
}

func occupationHint(persona models.Persona) string {
	if persona.Occupation == "" {
		return "- 仕事・役割についての特別な指定はありません。"
	}
	return fmt.Sprintf("- 仕事・役割: %s（生活の背景や一日のリズムをイメージするためのヒントです）", persona.Occupation)
}

func freeContextHint(persona models.Persona) string {
	if persona.FreeContext == "" {
		return "- 日常の背景メモは特に指定されていません。"
	}
	return "- 日常の背景メモ: " + persona.FreeContext
}

// hintUsageRules keeps optional persona hints from turning into invented facts.
func hintUsageRules() string {
	return `これらの情報は、その人の「暮らしの背景」や「心の置き場所」を考えるための手がかりとして使ってください。

- 日記の内容と自然につながる場合は、仕事・役割や背景メモに関係する描写を、本文のどこかで1回以上さりげなく入れてください。
- ただし、新しい具体的事実（特定の会社名・店名・人物名・出来事など）を勝手に付け加えてはいけません。
- 「コンビニのバイト」「ホテル清掃」「事務」など、誰でも連想できる一般的な行為（商品を並べる / レジを閉める / 部屋を整える / 画面を閉じる など）だけを、必要に応じて1〜2個まで描写してよいものとします。`
}

func entryDate(e models.SourceEntry) string {
	if e.DateKey != "" {
		return e.DateKey
	}
	if e.CreatedAt.IsZero() {
		return ""
	}
	return e.CreatedAt.Format("2006-01-02")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateLog(s string) string {
	runes := []rune(s)
	if len(runes) <= logBudgetRunes {
		return s
	}
	return string(runes[:logBudgetRunes]) + logEllipsis
}
