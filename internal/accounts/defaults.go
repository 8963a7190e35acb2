package accounts

import "github.com/cleared-dev/bukubesar/internal/model"

// Row is a chart-of-accounts line before it is bound to a company. Parents
// are referenced by code since IDs do not exist yet.
type Row struct {
	Code        string
	Name        string
	Type        model.AccountType
	Kind        model.AccountKind
	ParentCode  string
	IsGroup     bool
	Description string
}

// DefaultChart returns the standard chart of accounts seeded for new companies.
func DefaultChart() []Row {
	const (
		aset       = model.AccountTypeAsset
		kewajiban  = model.AccountTypeLiability
		ekuitas    = model.AccountTypeEquity
		pendapatan = model.AccountTypeRevenue
		beban      = model.AccountTypeExpense
	)
	return []Row{
		{Code: "1", Name: "Aset", Type: aset, IsGroup: true},
		{Code: "1-1", Name: "Aset Lancar", Type: aset, ParentCode: "1", IsGroup: true},
		{Code: "1-1100", Name: "Kas", Type: aset, Kind: model.AccountKindCash, ParentCode: "1-1", Description: "Kas kecil dan kas besar"},
		{Code: "1-1200", Name: "Bank", Type: aset, Kind: model.AccountKindBank, ParentCode: "1-1", Description: "Rekening giro dan tabungan"},
		{Code: "1-1300", Name: "Piutang Usaha", Type: aset, Kind: model.AccountKindReceivable, ParentCode: "1-1"},
		{Code: "1-1400", Name: "Persediaan Barang", Type: aset, Kind: model.AccountKindInventory, ParentCode: "1-1"},
		{Code: "1-1500", Name: "Uang Muka Pajak", Type: aset, ParentCode: "1-1"},
		{Code: "1-1900", Name: "Rekening Sementara", Type: aset, ParentCode: "1-1", Description: "Mutasi bank yang belum diklasifikasi"},
		{Code: "1-2", Name: "Aset Tetap", Type: aset, ParentCode: "1", IsGroup: true},
		{Code: "1-2100", Name: "Peralatan", Type: aset, ParentCode: "1-2"},
		{Code: "1-2900", Name: "Akumulasi Penyusutan", Type: aset, ParentCode: "1-2", Description: "Kontra aset, bersaldo kredit"},

		{Code: "2", Name: "Kewajiban", Type: kewajiban, IsGroup: true},
		{Code: "2-1100", Name: "Utang Usaha", Type: kewajiban, Kind: model.AccountKindPayable, ParentCode: "2"},
		{Code: "2-1200", Name: "Utang Pajak", Type: kewajiban, ParentCode: "2"},
		{Code: "2-1300", Name: "Biaya Yang Masih Harus Dibayar", Type: kewajiban, ParentCode: "2"},

		{Code: "3", Name: "Ekuitas", Type: ekuitas, IsGroup: true},
		{Code: "3-1100", Name: "Modal Disetor", Type: ekuitas, ParentCode: "3"},
		{Code: "3-1200", Name: "Laba Ditahan", Type: ekuitas, ParentCode: "3"},
		{Code: "3-1300", Name: "Prive", Type: ekuitas, ParentCode: "3"},

		{Code: "4", Name: "Pendapatan", Type: pendapatan, IsGroup: true},
		{Code: "4-1100", Name: "Penjualan", Type: pendapatan, ParentCode: "4"},
		{Code: "4-1200", Name: "Pendapatan Jasa", Type: pendapatan, ParentCode: "4"},
		{Code: "4-9100", Name: "Pendapatan Lain-lain", Type: pendapatan, ParentCode: "4"},

		{Code: "5", Name: "Beban", Type: beban, IsGroup: true},
		{Code: "5-1100", Name: "Harga Pokok Penjualan", Type: beban, ParentCode: "5"},
		{Code: "5-2", Name: "Beban Operasional", Type: beban, ParentCode: "5", IsGroup: true},
		{Code: "5-2100", Name: "Beban Gaji", Type: beban, ParentCode: "5-2"},
		{Code: "5-2200", Name: "Beban Sewa", Type: beban, ParentCode: "5-2"},
		{Code: "5-2300", Name: "Beban Listrik dan Air", Type: beban, ParentCode: "5-2"},
		{Code: "5-2400", Name: "Beban Penyusutan", Type: beban, ParentCode: "5-2"},
		{Code: "5-9100", Name: "Beban Lain-lain", Type: beban, ParentCode: "5"},
	}
}
