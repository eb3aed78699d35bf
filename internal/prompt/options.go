package prompt

import "github.com/af-corp/assessment-gateway/internal/locale"

// Category identifies one of the six questionnaire steps.
type Category int

const (
	Chain Category = iota
	ProjectType
	RevenueSource
	ProjectStage
	CoreGoal
	RiskPreference
)

// Categories lists the questionnaire steps in the order they are asked.
func Categories() []Category {
	return []Category{Chain, ProjectType, RevenueSource, ProjectStage, CoreGoal, RiskPreference}
}

// Key is the JSON field name of the category in an assessment submission.
func (c Category) Key() string {
	switch c {
	case Chain:
		return "chain"
	case ProjectType:
		return "projectType"
	case RevenueSource:
		return "revenueSource"
	case ProjectStage:
		return "projectStage"
	case CoreGoal:
		return "coreGoal"
	case RiskPreference:
		return "riskPreference"
	default:
		return "unknown"
	}
}

type question struct {
	title   string
	label   string // line prefix in the user prompt
	options []string
}

type table struct {
	unknown     string
	system      string
	header      string
	description string
	questions   [6]question
}

var tables = map[locale.Locale]table{
	locale.English: {
		unknown:     "Unknown",
		system:      "You are an evaluator of Web3 projects. A client has submitted the project below. Assess it in terms of business viability, technical feasibility, delivery timeline, and cost. Respond in English.",
		header:      "Project information:",
		description: "Project description:",
		questions: [6]question{
			Chain: {
				title: "What chain is your project on?",
				label: "Chain",
				options: []string{
					"Ethereum",
					"Polygon",
					"BSC (Binance Smart Chain)",
					"Arbitrum",
					"Optimism",
					"Avalanche",
					"Solana",
					"Other",
				},
			},
			ProjectType: {
				title: "What type is your project?",
				label: "Project type",
				options: []string{
					"DeFi (Decentralized Finance)",
					"NFT (Non-Fungible Token)",
					"GameFi (Gaming Finance)",
					"DAO (Decentralized Autonomous Organization)",
					"Web3 Infrastructure",
					"Cross-Chain Bridge",
					"Layer 2 Solution",
					"Other",
				},
			},
			RevenueSource: {
				title: "Where does project revenue come from?",
				label: "Revenue source",
				options: []string{
					"Trading Fees",
					"Token Issuance & Sales",
					"Liquidity Mining Rewards",
					"NFT Trading Commission",
					"Subscription or Membership Fees",
					"Advertising Revenue",
					"Other",
				},
			},
			ProjectStage: {
				title: "What stage is your project at now?",
				label: "Project stage",
				options: []string{
					"Concept Stage (Only Ideas)",
					"Development Stage (In Development)",
					"Testing Stage (Testnet Running)",
					"Mainnet Launch (Launched)",
					"Operation Stage (Has Users)",
				},
			},
			CoreGoal: {
				title: "Understand Core Goals/Needs",
				label: "Core goal",
				options: []string{
					"Fundraising (Seeking Investment)",
					"Technical Implementation (Implementing Technical Solutions)",
					"Community Growth (Expanding User Base)",
					"Product Optimization (Improving Existing Products)",
					"Security Audit (Ensuring Project Security)",
					"Market Promotion (Enhancing Brand Awareness)",
				},
			},
			RiskPreference: {
				title: "Risk Preference",
				label: "Risk preference",
				options: []string{
					"Conservative (Prioritize Security, Willing to Sacrifice Some Innovation)",
					"Balanced (Balance Between Security and Innovation)",
					"Aggressive (Pursue Innovation, Willing to Take Higher Risks)",
				},
			},
		},
	},
	locale.SimplifiedChinese: {
		unknown:     "未知",
		system:      "你是一名 Web3 项目评估人。现在有一个项目需要评估，请从商业价值、技术可行性、开发周期及费用几个方面给出评估。请使用简体中文回答。",
		header:      "项目信息：",
		description: "项目简介：",
		questions: [6]question{
			Chain: {
				title: "你的项目是什么链",
				label: "链",
				options: []string{
					"Ethereum",
					"Polygon",
					"BSC (Binance Smart Chain)",
					"Arbitrum",
					"Optimism",
					"Avalanche",
					"Solana",
					"其他",
				},
			},
			ProjectType: {
				title: "你的项目什么类型",
				label: "项目类型",
				options: []string{
					"DeFi (去中心化金融)",
					"NFT (非同质化代币)",
					"GameFi (游戏化金融)",
					"DAO (去中心化自治组织)",
					"Web3 基础设施",
					"跨链桥接",
					"Layer 2 解决方案",
					"其他",
				},
			},
			RevenueSource: {
				title: "项目收益来自哪里",
				label: "收益来源",
				options: []string{
					"交易手续费",
					"代币发行与销售",
					"流动性挖矿奖励",
					"NFT 交易佣金",
					"订阅或会员费用",
					"广告收入",
					"其他",
				},
			},
			ProjectStage: {
				title: "你的项目现在处于哪个阶段",
				label: "项目阶段",
				options: []string{
					"概念阶段（只有想法）",
					"开发阶段（正在开发中）",
					"测试阶段（测试网运行）",
					"主网上线（已上线）",
					"运营阶段（已有用户）",
				},
			},
			CoreGoal: {
				title: "了解核心目标/需求",
				label: "核心目标",
				options: []string{
					"融资（寻求投资）",
					"技术落地（实现技术方案）",
					"社区增长（扩大用户基础）",
					"产品优化（改进现有产品）",
					"安全审计（确保项目安全）",
					"市场推广（提升品牌知名度）",
				},
			},
			RiskPreference: {
				title: "风险偏好",
				label: "风险偏好",
				options: []string{
					"保守型（优先安全性，愿意牺牲一些创新）",
					"平衡型（在安全性和创新之间平衡）",
					"激进型（追求创新，愿意承担更高风险）",
				},
			},
		},
	},
	locale.TraditionalChinese: {
		unknown:     "未知",
		system:      "你是一名 Web3 項目評估人。現在有一個項目需要評估，請從商業價值、技術可行性、開發週期及費用幾個方面給出評估。請使用繁體中文回答。",
		header:      "項目信息：",
		description: "項目簡介：",
		questions: [6]question{
			Chain: {
				title: "你的項目是什麼鏈",
				label: "鏈",
				options: []string{
					"Ethereum",
					"Polygon",
					"BSC (Binance Smart Chain)",
					"Arbitrum",
					"Optimism",
					"Avalanche",
					"Solana",
					"其他",
				},
			},
			ProjectType: {
				title: "你的項目什麼類型",
				label: "項目類型",
				options: []string{
					"DeFi (去中心化金融)",
					"NFT (非同質化代幣)",
					"GameFi (遊戲化金融)",
					"DAO (去中心化自治組織)",
					"Web3 基礎設施",
					"跨鏈橋接",
					"Layer 2 解決方案",
					"其他",
				},
			},
			RevenueSource: {
				title: "項目收益來自哪裡",
				label: "收益來源",
				options: []string{
					"交易手續費",
					"代幣發行與銷售",
					"流動性挖礦獎勵",
					"NFT 交易佣金",
					"訂閱或會員費用",
					"廣告收入",
					"其他",
				},
			},
			ProjectStage: {
				title: "你的項目現在處於哪個階段",
				label: "項目階段",
				options: []string{
					"概念階段（只有想法）",
					"開發階段（正在開發中）",
					"測試階段（測試網運行）",
					"主網上線（已上線）",
					"運營階段（已有用戶）",
				},
			},
			CoreGoal: {
				title: "了解核心目標/需求",
				label: "核心目標",
				options: []string{
					"融資（尋求投資）",
					"技術落地（實現技術方案）",
					"社區增長（擴大用戶基礎）",
					"產品優化（改進現有產品）",
					"安全審計（確保項目安全）",
					"市場推廣（提升品牌知名度）",
				},
			},
			RiskPreference: {
				title: "風險偏好",
				label: "風險偏好",
				options: []string{
					"保守型（優先安全性，願意犧牲一些創新）",
					"平衡型（在安全性和創新之間平衡）",
					"激進型（追求創新，願意承擔更高風險）",
				},
			},
		},
	},
}

func tableFor(l locale.Locale) table {
	if t, ok := tables[l]; ok {
		return t
	}
	return tables[locale.Default]
}

// Label resolves a 1-based option index for a category. Out-of-range indices
// and unknown categories resolve to the locale's "unknown" placeholder.
func Label(l locale.Locale, c Category, index int) string {
	t := tableFor(l)
	if c < Chain || c > RiskPreference {
		return t.unknown
	}
	opts := t.questions[c].options
	if index < 1 || index > len(opts) {
		return t.unknown
	}
	return opts[index-1]
}

// Question is one localized questionnaire step.
type Question struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Options []string `json:"options"`
}

// Catalog returns the localized questionnaire, in step order.
func Catalog(l locale.Locale) []Question {
	t := tableFor(l)
	out := make([]Question, 0, len(t.questions))
	for _, c := range Categories() {
		q := t.questions[c]
		opts := make([]string, len(q.options))
		copy(opts, q.options)
		out = append(out, Question{Key: c.Key(), Title: q.title, Options: opts})
	}
	return out
}
