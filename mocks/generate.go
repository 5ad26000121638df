package mocks

//go:generate mockgen -destination=./mock_slippage.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/costs SlippageModel
//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/backtest/engine EventStrategy,SignalProvider
//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource DataSource
