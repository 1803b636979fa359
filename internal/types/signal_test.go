package types

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type SignalTestSuite struct {
	suite.Suite
}

func TestSignalSuite(t *testing.T) {
	suite.Run(t, new(SignalTestSuite))
}

func (suite *SignalTestSuite) TestBuyText() {
	signal := Signal{Kind: SignalKindBuy, Side: SideBuy, Symbol: "BTCUSD", Quantity: 1}
	suite.Equal("BUY:BTCUSD:1", signal.Text())
}

func (suite *SignalTestSuite) TestSellText() {
	signal := Signal{Kind: SignalKindSell, Side: SideSell, Symbol: "ETHUSD", Quantity: 10}
	suite.Equal("SELL:ETHUSD:10", signal.Text())
}

func (suite *SignalTestSuite) TestOrderText() {
	signal := Signal{Kind: SignalKindOrder, Side: SideSell, Symbol: "BTCUSD", Quantity: 1, OrderType: OrderTypeLimit}
	suite.Equal("ORDER:SELL:BTCUSD:1", signal.Text())
}

func (suite *SignalTestSuite) TestCloseText() {
	signal := Signal{Kind: SignalKindClose, Symbol: "SOLUSD"}
	suite.Equal("CLOSE:SOLUSD", signal.Text())
}

func (suite *SignalTestSuite) TestFractionalQuantityText() {
	signal := Signal{Kind: SignalKindBuy, Side: SideBuy, Symbol: "BTCUSD", Quantity: 0.5}
	suite.Equal("BUY:BTCUSD:0.5", signal.Text())
}
