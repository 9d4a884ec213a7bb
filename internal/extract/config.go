// Package extract pulls teams, markets and numeric fields out of noisy
// betting-tip text. Nothing in this package returns an error on malformed
// input: a miss is reported as a zero value.
package extract

// SportRule maps keyword patterns to a sport tag. Rules are evaluated in
// order and the first hit wins.
type SportRule struct {
	Tag      string
	Keywords []string
}

// Bookmaker maps a keyword to the bookmaker's display name. URLOnly
// keywords are ordinary words in tip text and are only trusted inside links.
type Bookmaker struct {
	Keyword string
	Name    string
	URLOnly bool `mapstructure:"url_only"`
}

// Config holds the keyword tables used for detection.
type Config struct {
	Sports       []SportRule
	Competitions []string
	Bookmakers   []Bookmaker
}

// Sport tags returned by DetectSport with the default table.
const (
	SportSoccer     = "Futebol"
	SportTennis     = "Tênis"
	SportBasketball = "Basquete"
	SportVolleyball = "Vôlei"
	SportHockey     = "Hóquei"
	SportMMA        = "MMA"
	SportESports    = "eSports"
)

// DefaultConfig returns the built-in keyword tables.
func DefaultConfig() Config {
	return Config{
		Sports:       DefaultSports(),
		Competitions: DefaultCompetitions(),
		Bookmakers:   DefaultBookmakers(),
	}
}

// DefaultSports is ordered so that tennis, whose vocabulary is the most
// distinctive, is checked before soccer.
func DefaultSports() []SportRule {
	return []SportRule{
		{Tag: SportTennis, Keywords: []string{"tenis", "tennis", "atp", "wta", "itf", "challenger", "roland garros", "wimbledon", "aces", "tie-break", "tiebreak"}},
		{Tag: SportBasketball, Keywords: []string{"basquete", "basketball", "nba", "nbb", "euroleague", "rebotes", "assistencias", "cestas de 3"}},
		{Tag: SportVolleyball, Keywords: []string{"volei", "volleyball", "superliga"}},
		{Tag: SportHockey, Keywords: []string{"hoquei", "hockey", "nhl"}},
		{Tag: SportMMA, Keywords: []string{"mma", "ufc", "luta", "nocaute"}},
		{Tag: SportESports, Keywords: []string{"esports", "e-sports", "cs2", "csgo", "valorant", "dota", "league of legends"}},
		{Tag: SportSoccer, Keywords: []string{"futebol", "soccer", "gols", "gol", "escanteios", "cantos", "cartoes", "ambas marcam", "brasileirao", "libertadores", "premier league", "champions", "defesas do goleiro"}},
	}
}

// DefaultCompetitions lists the competitions recognised out of the box.
func DefaultCompetitions() []string {
	return []string{
		"NBA", "Premier League", "Copa do Mundo", "Champions", "UEFA",
		"La Liga", "Serie A", "Bundesliga", "MLS", "Copa Libertadores",
	}
}

// DefaultBookmakers returns the known bookmakers.
func DefaultBookmakers() []Bookmaker {
	names := map[string]string{
		"bet365": "Bet365", "betano": "Betano", "superbet": "Superbet", "apostaganha": "ApostaGanha",
		"betboom": "BetBoom", "betfair": "Betfair", "novibet": "Novibet", "reidopitaco": "ReiDoPitaco",
		"f12bet": "F12Bet", "casadeapostas": "CasaDeApostas", "hiperbet": "Hiperbet", "pixdasorte": "PixDaSorte",
		"betdojogo": "BetDoJogo", "betsul": "BetSul", "galerabet": "GaleraBet", "papigames": "PapiGames",
		"sportybet": "SportyBet", "betsson": "Betsson", "spinbet": "SpinBet", "kto": "KTO",
		"betmgm": "BetMGM", "sportingbet": "SportingBet", "betesporte": "BetEsporte",
		"lancedasorte": "LanceDaSorte", "betfast": "BetFast", "faz1bet": "Faz1Bet", "betnacional": "BetNacional",
		"mrjack": "MrJack", "bravobet": "BravoBet", "segurobet": "SeguroBet", "vaidebet": "VaiDeBet",
		"betpix365": "BetPix365", "bolsadeapostas": "BolsaDeApostas", "betbra": "BetBra", "fulltbet": "FullTBet",
		"brbet": "BRBet", "apostou": "Apostou", "brasildasorte": "BrasildaSorte", "betao": "Betao",
		"vbet": "VBet", "xpbet": "XPBet", "supremabet": "SupremaBet", "blaze": "Blaze", "betvip": "BetVIP",
		"jonbet": "JonBet", "jogodeouro": "JogoDeOuro", "estrelabet": "EstrelaBet", "7kbet": "7KBet",
		"betdasorte": "BetDaSorte", "pixbet": "PixBet", "multibet": "MultiBet", "mcgames": "MCGames",
		"apostatudo": "ApostaTudo", "esportiva": "Esportiva", "bateubet": "BateuBet", "betfusion": "BetFusion",
		"verabet": "VeraBet", "mmabet": "MMABet", "bullsbet": "BullsBet", "pagol": "PagoL", "4play": "4Play",
		"goldebet": "GoldeBet", "br4bet": "BR4Bet", "lotogreen": "LotoGreen",
	}
	out := make([]Bookmaker, 0, len(names)+2)
	for k, v := range names {
		out = append(out, Bookmaker{Keyword: k, Name: v})
	}
	out = append(out,
		Bookmaker{Keyword: "stake", Name: "Stake", URLOnly: true},
		Bookmaker{Keyword: "cassino", Name: "Cassino", URLOnly: true},
	)
	return out
}
