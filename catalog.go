package main

// Fixed game content for the escape-room stage. The keyword catalog is
// hand-authored data, not behavior: keys are "A+B" pairs, a subset carry a
// "_后续" variant used once the caged player (player3) has been freed.

const (
	escapePassword = "ECHO"

	cageToken          = "囚笼"
	continuationSuffix = "_后续"

	// cagedRole is freed by the 钥匙+囚笼 entry; its unlock state selects
	// the continuation variants.
	cagedRole = "player3"
)

// Role slots in join order. player1 starts unlocked, the other two must be
// rescued in-game before they can act.
var roleOrder = []string{"player1", "player2", "player3"}

type roleInfo struct {
	displayName string
	animal      string
	initialHP   float64
	startsReady bool
}

var roles = map[string]roleInfo{
	"player1": {displayName: "玩家1", animal: "乌龟", initialHP: 8, startsReady: true},
	"player2": {displayName: "玩家2", animal: "猫", initialHP: 8},
	"player3": {displayName: "玩家3", animal: "狗", initialHP: 8},
}

var initialItems = []string{"水潭", "行李箱", "衣柜"}

// Effect describes the state changes a catalog entry applies. All fields
// are optional and any combination may co-occur.
type Effect struct {
	AddItems     []string
	RemoveItems  []string
	MarkBroken   string
	AddLetter    string
	AddItem      string // special single-item grant
	UnlockPlayer string
	UnlockArea   string
	CurrentHP    float64
	AllHP        float64
	RoleHP       map[string]float64
}

type CatalogEntry struct {
	Text   string
	Effect Effect
}

func lookupEffect(key string) (CatalogEntry, bool) {
	entry, ok := keywordEffects[key]
	return entry, ok
}

var keywordEffects = map[string]CatalogEntry{
	// 水潭区域
	"水潭+乌龟": {
		Text:   "你潜入水中获得了一个木盒，水下似乎还有其他物品但无法拿取。",
		Effect: Effect{AddItems: []string{"木盒"}},
	},
	"水潭+猫": {
		Text:   "你跳入水中（不会游泳），因为\"要面子\"未呼救。",
		Effect: Effect{RoleHP: map[string]float64{"player2": -1}},
	},
	"水潭+狗": {
		Text:   "你从水潭中捞起一个显示器，摸起来感觉\"凑凑的\"。",
		Effect: Effect{AddItems: []string{"显示器"}},
	},
	"水潭+行李箱": {
		Text: "你将行李箱做成了\"梅利号\"船，船沉了之后又取回了行李箱。",
	},
	"水潭+衣柜": {
		Text:   "搬衣柜时不小心碰到头，你意识到这个世界是有引力的。",
		Effect: Effect{CurrentHP: -1},
	},
	"水潭+显示器": {
		Text:   "你把显示器扔回水潭，它消失了。",
		Effect: Effect{RemoveItems: []string{"显示器"}},
	},
	"水潭+电脑": {
		Text:   "电脑入水后出现了河神！河神问你掉的是什么。如实回答后，你的生命值+1。",
		Effect: Effect{CurrentHP: 1},
	},
	"水潭+钥匙": {
		Text: "你用钥匙打水漂，其他玩家在背后吐槽你\"智力不健全\"。",
	},
	"水潭+囚笼": {
		Text:   "你试图浸泡囚笼，被里面的狗咬伤。",
		Effect: Effect{CurrentHP: -2},
	},
	"水潭+囚笼_后续": {
		Text:   "囚笼入水后出现河神，但河神打了你一耳光。",
		Effect: Effect{CurrentHP: -1},
	},
	"水潭+花瓶": {
		Text:   "你饮用了花瓶内带细菌的水，得了肠胃炎。",
		Effect: Effect{CurrentHP: -1},
	},
	"水潭+木盒": {
		Text:   "木盒被扔回水潭后消失了。",
		Effect: Effect{RemoveItems: []string{"木盒"}},
	},

	// 行李箱区域
	"行李箱+乌龟": {
		Text:   "行李箱有三位初始密码（000）。主持人帮你解锁后，救出了被困的猫！猫恢复了行动能力。",
		Effect: Effect{UnlockPlayer: "player2"},
	},
	"行李箱+猫": {
		Text:   "你撕烂了行李箱，获得了里面的钥匙。",
		Effect: Effect{AddItems: []string{"钥匙"}},
	},
	"行李箱+狗": {
		Text: "你在行李箱上做了标记，不过效果未知。",
	},
	"行李箱+显示器": {
		Text: "你的组合被吐槽\"智商异于常人\"，建议你停手。",
	},
	"行李箱+电脑": {
		Text: "你被吐槽\"打算出差吗\"，建议去医院检查一下。",
	},
	"行李箱+钥匙": {
		Text:   "钥匙放回行李箱后消失了。（下次触发关键词时会提醒你）",
		Effect: Effect{RemoveItems: []string{"钥匙"}},
	},
	"行李箱+囚笼": {
		Text:   "你用行李箱砸囚笼想救出狗，但不慎砸伤了狗。",
		Effect: Effect{RoleHP: map[string]float64{"player3": -1}},
	},
	"行李箱+囚笼_后续": {
		Text: "你将行李箱锁入囚笼，认为这样\"更安全\"。",
	},
	"行李箱+衣柜": {
		Text: "你将行李箱放入衣柜，打扫后发现这并非自己的房间。",
	},
	"行李箱+花瓶": {
		Text: "你将花瓶误认作青花瓷装入，但被指出仅值20元，建议放弃鉴宝。",
	},
	"行李箱+木盒": {
		Text: "因为同情木盒\"不自由\"，你将它锁进了行李箱。",
	},

	// 衣柜区域
	"衣柜+乌龟": {
		Text:   "你在衣柜下方发现了一个按钮，打开后出现了小房间！房间内有囚笼、狗、花瓶、电脑，出口门需要四位密码。",
		Effect: Effect{AddItems: []string{"囚笼", "花瓶", "电脑"}, UnlockArea: "小房间"},
	},
	"衣柜+猫": {
		Text:   "你在衣柜顶部发现了字母\"C\"。",
		Effect: Effect{AddLetter: "C"},
	},
	"衣柜+狗": {
		Text: "你在衣柜上做了标记，不过效果未知。",
	},
	"衣柜+行李箱": {
		Text: "你将行李箱放入衣柜，打扫后发现这并非自己的房间。",
	},
	"衣柜+水潭": {
		Text:   "搬衣柜时不小心碰到头，你意识到这个世界是有引力的。",
		Effect: Effect{CurrentHP: -1},
	},
	"衣柜+显示器": {
		Text: "你的组合触发了\"作者崇拜\"，获得提醒：\"行李箱+显示器\"。",
	},
	"衣柜+电脑": {
		Text: "你将电脑放入衣柜开机，没有效果，被其他玩家嘲笑了。",
	},
	"衣柜+钥匙": {
		Text:   "你打开了衣柜暗格，获得红水晶心！食用后生命值+1。（钥匙可复用）",
		Effect: Effect{CurrentHP: 1},
	},
	"衣柜+囚笼": {
		Text:   "你将囚笼锁入衣柜，被里面的狗咬伤。",
		Effect: Effect{CurrentHP: -2},
	},
	"衣柜+囚笼_后续": {
		Text: "你给囚笼内的狗穿上衣服（不合身），被其他玩家疏远了。",
	},
	"衣柜+花瓶": {
		Text: "你给花瓶穿上衣服（不合身），被其他玩家疏远了。",
	},
	"衣柜+木盒": {
		Text:   "你将木盒放入衣柜，讲了个冷笑话导致其他玩家冻感冒。",
		Effect: Effect{AllHP: -0.5},
	},

	// 木盒区域
	"木盒+乌龟": {
		Text: "你无法打开木盒。",
	},
	"木盒+猫": {
		Text: "你无法打开木盒。",
	},
	"木盒+狗": {
		Text:   "你咬开了木盒，获得字条\"E\"。",
		Effect: Effect{AddLetter: "E"},
	},
	"木盒+水潭": {
		Text:   "木盒被扔回水潭后消失了。",
		Effect: Effect{RemoveItems: []string{"木盒"}},
	},
	"木盒+行李箱": {
		Text: "木盒被锁进了行李箱。",
	},
	"木盒+衣柜": {
		Text:   "木盒被放入衣柜，触发冷笑话导致其他玩家生命值-0.5。",
		Effect: Effect{AllHP: -0.5},
	},
	"木盒+显示器": {
		Text:   "木盒砸坏了显示器。（备注：显示器无法使用，密码需\"瞎猜\"）",
		Effect: Effect{RemoveItems: []string{"显示器"}, MarkBroken: "显示器"},
	},
	"木盒+电脑": {
		Text: "没有效果。",
	},
	"木盒+钥匙": {
		Text: "钥匙型号不匹配，无法打开木盒。",
	},
	"木盒+囚笼": {
		Text:   "你将木盒给了狗，狗咬开后获得字条\"E\"。",
		Effect: Effect{AddLetter: "E"},
	},
	"木盒+囚笼_后续": {
		Text: "你将木盒关入囚笼，被其他玩家吐槽了。",
	},
	"木盒+花瓶": {
		Text:   "花瓶砸木盒后碎裂，获得字母\"O\"。（备注：花瓶无法使用）",
		Effect: Effect{AddLetter: "O", RemoveItems: []string{"花瓶"}, MarkBroken: "花瓶"},
	},

	// 电脑区域
	"电脑+猫": {
		Text: "你发现电脑已经损坏，无法维修。",
	},
	"电脑+乌龟": {
		Text: "你发现电脑已经损坏，无法维修。",
	},
	"电脑+狗": {
		Text: "你在电脑上做了标记，不过效果未知。",
	},
	"电脑+水潭": {
		Text:   "电脑入水后出现了河神！如实回答后生命值+1。",
		Effect: Effect{CurrentHP: 1},
	},
	"电脑+行李箱": {
		Text: "你被吐槽\"打算出差吗\"，建议去医院检查。",
	},
	"电脑+衣柜": {
		Text: "你将电脑放入衣柜开机，没有效果，被其他玩家嘲笑了。",
	},
	"电脑+木盒": {
		Text: "没有效果。",
	},
	"电脑+钥匙": {
		Text: "钥匙插入电脑后没有效果。",
	},
	"电脑+囚笼": {
		Text: "你将电脑给狗玩，狗陷入了沉思。",
	},
	"电脑+囚笼_后续": {
		Text: "你将电脑关入囚笼，命名为\"赛博监狱\"。",
	},
	"电脑+花瓶": {
		Text:   "你用花瓶砸电脑，花瓶碎裂、手划伤，获得字母\"O\"。",
		Effect: Effect{AddLetter: "O", CurrentHP: -1, RemoveItems: []string{"花瓶"}, MarkBroken: "花瓶"},
	},
	"电脑+花瓶_密码后": {
		Text:   "你砸电脑获得字母\"O\"，同时获得\"跳关卡卡\"！（最后关卡可用）",
		Effect: Effect{AddLetter: "O", AddItem: "跳关卡卡"},
	},

	// 钥匙区域
	"钥匙+狗": {
		Text: "你将钥匙含在嘴里（个人习惯）。",
	},
	"钥匙+猫": {
		Text: "你用钥匙挠后背，体感舒适。",
	},
	"钥匙+乌龟": {
		Text: "你认为钥匙是用于打开\"桌扇门\"的。",
	},
	"钥匙+水潭": {
		Text: "你用钥匙打水漂，被其他玩家背后吐槽\"智力不健全\"。",
	},
	"钥匙+行李箱": {
		Text:   "钥匙放回行李箱后消失了。（下次触发关键词时会提醒你）",
		Effect: Effect{RemoveItems: []string{"钥匙"}},
	},
	"钥匙+衣柜": {
		Text:   "你打开了衣柜暗格，获得红水晶心！食用后生命值+1。（钥匙可复用）",
		Effect: Effect{CurrentHP: 1},
	},
	"钥匙+木盒": {
		Text: "钥匙型号不匹配，无法打开木盒。",
	},
	"钥匙+电脑": {
		Text: "钥匙插入电脑后没有效果。",
	},
	"钥匙+显示器": {
		Text:   "你用钥匙砸显示器，显示器损坏了。（备注：显示器无法使用，密码需\"瞎猜\"）",
		Effect: Effect{RemoveItems: []string{"显示器"}, MarkBroken: "显示器"},
	},
	"钥匙+囚笼": {
		Text:   "你打开了囚笼，狗恢复了行动能力！",
		Effect: Effect{UnlockPlayer: "player3"},
	},
	"钥匙+囚笼_后续": {
		Text: "你将囚笼重新锁上了。",
	},
	"钥匙+花瓶": {
		Text: "你试图用钥匙打开花瓶，被建议去医院检查。",
	},

	// 显示器区域
	"显示器+猫": {
		Text:   "你砸坏了显示器，它消失了。（备注：显示器无法使用，密码需\"瞎猜\"）",
		Effect: Effect{RemoveItems: []string{"显示器"}, MarkBroken: "显示器"},
	},
	"显示器+狗": {
		Text: "你发现显示器防水，性能优于当前电脑。",
	},
	"显示器+乌龟": {
		Text:   "你通过显示器反光\"臭美\"，生命值+1。",
		Effect: Effect{CurrentHP: 1},
	},
	"显示器+水潭": {
		Text:   "显示器被扔回水潭后消失了。",
		Effect: Effect{RemoveItems: []string{"显示器"}},
	},
	"显示器+行李箱": {
		Text: "获得提醒：\"显示器+衣柜\"。",
	},
	"显示器+衣柜": {
		Text: "你被夸\"天才\"，触发\"作者崇拜\"！",
	},
	"显示器+木盒": {
		Text:   "被木盒砸坏。（备注：显示器无法使用，密码需\"瞎猜\"）",
		Effect: Effect{RemoveItems: []string{"显示器"}, MarkBroken: "显示器"},
	},
	"显示器+电脑": {
		Text:   "更换显示器后打开电脑，获得字母\"H\"！",
		Effect: Effect{AddLetter: "H"},
	},
	"显示器+钥匙": {
		Text:   "你用钥匙砸显示器，显示器损坏了。（备注：显示器无法使用，密码需\"瞎猜\"）",
		Effect: Effect{RemoveItems: []string{"显示器"}, MarkBroken: "显示器"},
	},
	"显示器+花瓶": {
		Text: "获得提醒：\"显示器+衣柜\"。",
	},

	// 花瓶区域
	"花瓶+猫": {
		Text:   "你把脑袋探进了花瓶里，观察到瓶内居然有一个字母：O。",
		Effect: Effect{AddLetter: "O"},
	},
	"花瓶+狗": {
		Text: "你在花瓶上做了标记，不过效果未知。",
	},
	"花瓶+乌龟": {
		Text: "你未发现花瓶的玄机，让其他玩家试试吧。",
	},
	"花瓶+囚笼": {
		Text: "你将花瓶递给狗，狗将其弄坏了。",
	},
	"花瓶+囚笼_后续": {
		Text: "你将花瓶关入囚笼，没有效果（仅被其他玩家嘲笑）。",
	},

	// 角色互动
	"猫+狗": {
		Text:   "你嘲讽了狗的身材，二人打了一架，你惨败。",
		Effect: Effect{RoleHP: map[string]float64{"player2": -1}},
	},
	"猫+乌龟": {
		Text: "你嘲笑乌龟\"长得奇怪\"，但乌龟没有理会你。",
	},
	"狗+乌龟": {
		Text: "你感谢乌龟救了自己，约定共同弄清这个处境。",
	},
	"狗+猫": {
		Text: "你们互相感觉\"眼熟\"，认为有特殊的羁绊。",
	},
	"乌龟+猫": {
		Text: "你督促猫快点行动，猫吐槽你是\"装货\"。",
	},
	"乌龟+狗": {
		Text:   "你教狗强身的方法，狗学会后生命值+1。",
		Effect: Effect{RoleHP: map[string]float64{"player3": 1}},
	},

	// 囚笼相关
	"猫+囚笼": {
		Text: "你嘲笑被囚的狗，被狗怒骂了。",
	},
	"乌龟+囚笼": {
		Text: "你安慰狗，说会想办法救他。",
	},
	"猫+囚笼_后续": {
		Text: "你将自己关入囚笼，称\"好玩\"并让其他人救自己。",
	},
	"乌龟+囚笼_后续": {
		Text:   "你检查囚笼下方，获得跳关卡卡！（最后关卡可用）",
		Effect: Effect{AddItem: "跳关卡卡"},
	},
	"狗+囚笼": {
		Text: "你在囚笼上做了标记，不过效果未知。",
	},
}
