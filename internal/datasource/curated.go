package datasource

import (
	"strings"

	"github.com/seenimoa/finsum/pkg/utils"
)

type headlineTemplate struct {
	headline  string // appended to the symbol
	sentiment float64
}

var symbolHeadlines = map[string][]headlineTemplate{
	"AAPL": {
		{"Announces New iPhone Model", 0.6},
		{"Expands Services Business", 0.4},
		{"Reports Record Quarterly Earnings", 0.7},
		{"CEO Discusses Future Innovation", 0.5},
		{"Sets New Sales Record in Asia Markets", 0.6},
	},
	"MSFT": {
		{"Cloud Business Continues Strong Growth", 0.5},
		{"Releases New Azure Features", 0.3},
		{"CEO Discusses AI Strategy", 0.4},
		{"Expands Gaming Division with New Acquisition", 0.6},
		{"Reports Better-Than-Expected Cloud Revenue", 0.5},
	},
	"GOOGL": {
		{"Search Innovation Powers Ad Revenue", 0.5},
		{"YouTube Premium Subscribers Growing", 0.6},
		{"Advances in AI Research Announced", 0.7},
		{"Cloud Platform Gains Market Share", 0.5},
		{"Unveils New Pixel Smartphone Features", 0.4},
	},
	"AMZN": {
		{"AWS Revenue Growth Beats Expectations", 0.6},
		{"Expands Same-Day Delivery", 0.4},
		{"Price Target Raised by Analysts", 0.5},
		{"Announces New Prime Benefits", 0.6},
		{"E-commerce Market Share Continues to Grow", 0.7},
	},
	"TSLA": {
		{"Delivers Record Number of Vehicles", 0.7},
		{"Announces New Gigafactory Location", 0.6},
		{"Energy Business Shows Promising Growth", 0.5},
		{"Expands Supercharger Network Globally", 0.6},
		{"Unveils New Vehicle Prototype", 0.7},
	},
	"NVDA": {
		{"AI Chip Demand Remains Strong", 0.8},
		{"Introduces Next-Gen GPU Architecture", 0.7},
		{"Reports Better-Than-Expected Earnings", 0.6},
		{"Gaming Revenue Surges in Q3", 0.5},
		{"Announces New Data Center Solutions", 0.7},
	},
	"META": {
		{"Reports Growth in Daily Active Users", 0.6},
		{"Metaverse Investment Begins to Pay Off", 0.5},
		{"Ad Revenue Rebounds Above Estimates", 0.7},
		{"Expands AI Research Division", 0.6},
		{"Reports Strong Quarter for WhatsApp Business", 0.5},
	},
}

var genericHeadlines = []headlineTemplate{
	{"Beats Earnings Expectations", 0.6},
	{"Announces Share Buyback Program", 0.5},
	{"Expands Into New Markets", 0.4},
	{"CEO Discusses Future Growth Strategy", 0.3},
	{"Analysts Remain Bullish Despite Market Volatility", 0.5},
	{"Reports Strong Quarterly Revenue", 0.6},
	{"Announces Key Executive Appointments", 0.4},
}

func headlineTemplates(sym string) []headlineTemplate {
	if t, ok := symbolHeadlines[sym]; ok {
		return t
	}
	return genericHeadlines
}

var curatedURLs = map[string][]string{
	"AAPL": {
		"https://www.macrumors.com/",
		"https://appleinsider.com/",
		"https://9to5mac.com/",
		"https://www.bloomberg.com/quote/AAPL:US",
		"https://finance.yahoo.com/quote/AAPL/",
	},
	"GOOGL": {
		"https://blog.google/",
		"https://www.theverge.com/google",
		"https://9to5google.com/",
		"https://finance.yahoo.com/quote/GOOGL/",
		"https://www.cnbc.com/quotes/GOOGL",
	},
	"MSFT": {
		"https://news.microsoft.com/",
		"https://www.theverge.com/microsoft",
		"https://www.zdnet.com/topic/microsoft/",
		"https://finance.yahoo.com/quote/MSFT/",
		"https://www.cnbc.com/quotes/MSFT",
	},
	"TSLA": {
		"https://www.tesla.com/blog",
		"https://electrek.co/guides/tesla/",
		"https://insideevs.com/tesla/",
		"https://finance.yahoo.com/quote/TSLA/",
		"https://www.cnbc.com/quotes/TSLA",
	},
	"NVDA": {
		"https://nvidianews.nvidia.com/",
		"https://blogs.nvidia.com/",
		"https://finance.yahoo.com/quote/NVDA/",
		"https://www.cnbc.com/quotes/NVDA",
		"https://seekingalpha.com/symbol/NVDA",
	},
	"AMZN": {
		"https://www.aboutamazon.com/news",
		"https://finance.yahoo.com/quote/AMZN/",
		"https://www.cnbc.com/quotes/AMZN",
		"https://seekingalpha.com/symbol/AMZN",
		"https://www.marketwatch.com/investing/stock/amzn",
	},
	"META": {
		"https://about.fb.com/news/",
		"https://finance.yahoo.com/quote/META/",
		"https://www.cnbc.com/quotes/META",
		"https://seekingalpha.com/symbol/META",
		"https://www.marketwatch.com/investing/stock/meta",
	},
	"NFLX": {
		"https://about.netflix.com/en/newsroom",
		"https://finance.yahoo.com/quote/NFLX/",
		"https://www.cnbc.com/quotes/NFLX",
		"https://seekingalpha.com/symbol/NFLX",
		"https://www.marketwatch.com/investing/stock/nflx",
	},
}

// CuratedURLs returns real news pages for a symbol. Symbols without a
// dedicated list get quote pages on general finance sites.
func CuratedURLs(symbol string) []string {
	sym := utils.NormalizeTicker(symbol)
	if urls, ok := curatedURLs[sym]; ok {
		return urls
	}
	return []string{
		"https://finance.yahoo.com/quote/" + sym + "/",
		"https://www.cnbc.com/quotes/" + sym,
		"https://seekingalpha.com/symbol/" + sym,
		"https://www.marketwatch.com/investing/stock/" + strings.ToLower(sym),
		"https://www.bloomberg.com/quote/" + sym + ":US",
	}
}
