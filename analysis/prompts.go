package analysis

const (
	opinionsHeader  = "SECTION 1 - STOCK OPINIONS:"
	sentimentHeader = "SECTION 2 - SENTIMENT ANALYSIS:"

	// SentimentFailed replaces the sentiment section when a response cannot be split.
	SentimentFailed = "Failed to extract sentiment section."

	chunkCacheTag         = "stock_analysis"
	consolidationCacheTag = "consolidated"

	chunkMaxTokens         = 2000
	consolidationMaxTokens = 1000
)

const chunkAnalysisPrompt = "Analyze the following transcript and provide TWO sections:\n\n" +
	opinionsHeader + "\n" +
	"Focus ONLY on opinions about stocks, companies, or market sectors mentioned. " +
	"Identify specific stock recommendations, predictions, or investment opinions. " +
	"Include the stock ticker symbol when mentioned or when you can confidently infer it. " +
	"If no stock opinions are found, state that clearly.\n\n" +
	sentimentHeader + "\n" +
	"For each stock or company mentioned, analyze the sentiment (bullish, bearish, or neutral). " +
	"Consider price targets, time horizons, and confidence levels when mentioned. " +
	"If no stock opinions are present, simply state that no stock sentiment could be analyzed."

const consolidationPrompt = "Provide a comprehensive and organized summary of all stock opinions from the transcript. " +
	"Group opinions by company/stock and highlight any conflicting views or repeated mentions across different sections. " +
	"Focus only on stocks and investing information. Ignore everything else."
