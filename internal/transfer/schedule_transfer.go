package transfer

type ScheduleCreation struct {
	CampaignID           string   `json:"campaign_id"`
	Timezone             string   `json:"timezone"`
	Times                []string `json:"times"`
	Recurrence           string   `json:"recurrence"`
	StartDate            string   `json:"start_date"` // YYYY-MM-DD
	EndDate              string   `json:"end_date"`   // optional
	AutoPost             bool     `json:"auto_post"`
	DailyLimit           int      `json:"daily_limit"`
	SelectedVariantIndex int      `json:"selected_variant_index"`
	PostIntervalMin      int      `json:"post_interval_min"`
	PostIntervalMax      int      `json:"post_interval_max"`
}
